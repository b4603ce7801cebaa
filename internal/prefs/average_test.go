// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package prefs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverage_TwoSamples(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTable(t, fs, "s1_prefs.csv", "site,A,C\n1,0.9,0.1\n2,0.2,0.8\n")
	writeTable(t, fs, "s2_prefs.csv", "site,A,C\n1,0.5,0.5\n2,0.4,0.6\n")

	avg, err := Average(fs, []Sample{
		{Name: "s1", Path: "s1_prefs.csv"},
		{Name: "s2", Path: "s2_prefs.csv"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, avg.Sites)
	assert.InDelta(t, 0.7, avg.Data[0][0], 1e-12)
	assert.InDelta(t, 0.3, avg.Data[0][1], 1e-12)
	assert.InDelta(t, 0.3, avg.Data[1][0], 1e-12)
	assert.InDelta(t, 0.7, avg.Data[1][1], 1e-12)
}

func TestAverage_SingleSampleIsIdentity(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTable(t, fs, "s1_prefs.csv", "site,A,C\n1,0.9,0.1\n2,0.2,0.8\n")

	want, err := Read(fs, "s1_prefs.csv")
	require.NoError(t, err)

	avg, err := Average(fs, []Sample{{Name: "s1", Path: "s1_prefs.csv"}})
	require.NoError(t, err)

	assert.Equal(t, want, avg)
}

func TestAverage_CommutativeOverSampleOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTable(t, fs, "s1_prefs.csv", "site,A,C\n1,0.9,0.1\n2,0.2,0.8\n")
	writeTable(t, fs, "s2_prefs.csv", "site,A,C\n1,0.5,0.5\n2,0.4,0.6\n")
	writeTable(t, fs, "s3_prefs.csv", "site,A,C\n1,0.1,0.9\n2,0.6,0.4\n")

	samples := []Sample{
		{Name: "s1", Path: "s1_prefs.csv"},
		{Name: "s2", Path: "s2_prefs.csv"},
		{Name: "s3", Path: "s3_prefs.csv"},
	}
	permuted := []Sample{samples[2], samples[0], samples[1]}

	a, err := Average(fs, samples)
	require.NoError(t, err)
	b, err := Average(fs, permuted)
	require.NoError(t, err)

	require.Equal(t, a.Sites, b.Sites)

	for i := range a.Data {
		for j := range a.Data[i] {
			assert.InDelta(t, a.Data[i][j], b.Data[i][j], 1e-12)
		}
	}
}

func TestAverage_ShapeMismatchNamesSample(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTable(t, fs, "s1_prefs.csv", "site,A,C\n1,0.9,0.1\n")
	writeTable(t, fs, "s2_prefs.csv", "site,A,G\n1,0.5,0.5\n")

	_, err := Average(fs, []Sample{
		{Name: "s1", Path: "s1_prefs.csv"},
		{Name: "s2", Path: "s2_prefs.csv"},
	})
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.ErrorContains(t, err, "s2")
}

func TestAverage_NoSamples(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Average(fs, nil)
	require.ErrorIs(t, err, ErrNoSamples)
}
