package comment

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/VitaminP8/trackid/internal/model"
)

type SortOrder string

const (
	// порядок добавления
	SortAll    SortOrder = "all"
	SortNewest SortOrder = "newest"
	SortTop    SortOrder = "top"
)

var ErrInvalidSort = errors.New("unknown sort order")

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortAll:
		return SortAll, nil
	case SortNewest:
		return SortNewest, nil
	case SortTop:
		return SortTop, nil
	}
	return "", ErrInvalidSort
}

var mentionRe = regexp.MustCompile(`(?:^|[^\w@])@([A-Za-z0-9_]+(?:[.-][A-Za-z0-9_]+)*)`)

// ParseMention возвращает имя из первого @упоминания в тексте или пустую строку.
func ParseMention(content string) string {
	m := mentionRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

// Rank строит дерево комментариев (один уровень ответов) и сортирует его.
// Подтвержденный комментарий всегда первый, независимо от порядка сортировки:
// среди ответов это он сам, среди корневых — его ветка.
// comments должны идти в порядке добавления.
func Rank(comments []*model.Comment, order SortOrder) []*model.Comment {
	pos := make(map[string]int, len(comments))
	byID := make(map[string]*model.Comment, len(comments))
	for i, c := range comments {
		cp := *c
		cp.Replies = nil
		pos[c.ID] = i
		byID[c.ID] = &cp
	}

	roots := []*model.Comment{}
	for _, c := range comments {
		node := byID[c.ID]
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	pinned := func(c *model.Comment) bool {
		if c.IsIdentified {
			return true
		}
		for _, r := range c.Replies {
			if r.IsIdentified {
				return true
			}
		}
		return false
	}

	sortLevel := func(list []*model.Comment) {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if pa, pb := pinned(a), pinned(b); pa != pb {
				return pa
			}
			switch order {
			case SortNewest:
				if !a.CreatedAt.Equal(b.CreatedAt) {
					return a.CreatedAt.After(b.CreatedAt)
				}
			case SortTop:
				if a.VoteScore != b.VoteScore {
					return a.VoteScore > b.VoteScore
				}
			}
			return pos[a.ID] < pos[b.ID]
		})
	}

	sortLevel(roots)
	for _, r := range roots {
		sortLevel(r.Replies)
	}
	return roots
}
