// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forumui

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/bureau-foundation/classroom/forum"
)

var fuzzyInitOnce sync.Once

// fuzzyResult is one fzf match: Score is zero when the pattern does
// not match, and Positions are rune offsets into the matched text.
type fuzzyResult struct {
	Score     int
	Positions []int
}

// fuzzyMatch runs fzf's V2 algorithm case-insensitively. slab may be
// nil; passing one reused across calls avoids per-call allocation.
func fuzzyMatch(text string, pattern []rune, slab *util.Slab) fuzzyResult {
	if len(pattern) == 0 {
		return fuzzyResult{}
	}
	fuzzyInitOnce.Do(func() { algo.Init("default") })

	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, positions := algo.FuzzyMatchV2(false, false, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return fuzzyResult{}
	}
	matched := fuzzyResult{Score: result.Score}
	if positions != nil {
		matched.Positions = append([]int(nil), (*positions)...)
		sort.Ints(matched.Positions)
	}
	return matched
}

// discussionMatch is a discussion that passed the filter, with the
// rune offsets of matched characters inside its title.
type discussionMatch struct {
	Discussion     forum.Discussion
	Score          int
	TitlePositions []int
}

// filterDiscussions matches query against each title and content.
// An empty query keeps every discussion in server order; otherwise
// results are ordered by descending score, ties in server order.
func filterDiscussions(discussions []forum.Discussion, query string, slab *util.Slab) []discussionMatch {
	query = strings.TrimSpace(query)
	matches := make([]discussionMatch, 0, len(discussions))
	if query == "" {
		for _, discussion := range discussions {
			matches = append(matches, discussionMatch{Discussion: discussion})
		}
		return matches
	}

	pattern := []rune(query)
	for _, discussion := range discussions {
		result := fuzzyMatch(discussion.Title+" "+discussion.Content, pattern, slab)
		if result.Score == 0 {
			continue
		}
		titleLength := utf8.RuneCountInString(discussion.Title)
		var titlePositions []int
		for _, position := range result.Positions {
			if position < titleLength {
				titlePositions = append(titlePositions, position)
			}
		}
		matches = append(matches, discussionMatch{
			Discussion:     discussion,
			Score:          result.Score,
			TitlePositions: titlePositions,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
