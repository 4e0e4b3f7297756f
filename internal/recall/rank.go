// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package recall

import "slices"

type scoredIndex struct {
	index int
	score float64
}

// topK returns the first k column indices of a row ordered by descending
// score, ties by ascending index. The row holds only positive entries; the
// remaining columns score zero and fill the order by ascending index.
func topK(row map[int]float64, cols, k int) []int {
	if k <= 0 || cols == 0 {
		return nil
	}
	if k > cols {
		k = cols
	}

	scored := make([]scoredIndex, 0, len(row))
	for c, v := range row {
		scored = append(scored, scoredIndex{index: c, score: v})
	}
	slices.SortFunc(scored, func(a, b scoredIndex) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return a.index - b.index
		}
	})

	out := make([]int, 0, k)
	for _, s := range scored {
		if len(out) == k {
			return out
		}
		out = append(out, s.index)
	}
	for c := 0; c < cols && len(out) < k; c++ {
		if _, positive := row[c]; positive {
			continue
		}
		out = append(out, c)
	}
	return out
}
