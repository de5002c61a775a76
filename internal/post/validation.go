package post

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 200
	MaxWords             = 300
)

// CountWords counts whitespace-separated tokens after dropping every backtick.
// Other Markdown syntax is counted as-is; existing posts were counted this way.
func CountWords(text string) int {
	clean := strings.ReplaceAll(text, "`", "")
	return len(strings.Fields(strings.TrimSpace(clean)))
}

func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags normalizes every tag, keeping order and duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = NormalizeTag(t)
	}
	return out
}

func checkTitle(title string) error {
	if title == "" {
		return invalid("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return invalid("title", fmt.Sprintf("Title must be %d characters or less", MaxTitleLength))
	}
	return nil
}

func checkDescription(desc string) error {
	if desc == "" {
		return invalid("description", "Description is required")
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return invalid("description", fmt.Sprintf("Description must be %d characters or less", MaxDescriptionLength))
	}
	return nil
}

func checkContent(content string) (int, error) {
	if content == "" {
		return 0, invalid("content", "Content is required")
	}
	n := CountWords(content)
	if n > MaxWords {
		return n, invalid("content", fmt.Sprintf("Content must be %d words or less", MaxWords))
	}
	return n, nil
}

func checkTags(tags []string) error {
	if len(tags) == 0 {
		return invalid("tags", "At least one tag is required")
	}
	return nil
}

// ValidateCreate trims and normalizes a create payload and checks every rule.
// It never truncates: an over-long field is rejected.
func ValidateCreate(in CreateInput) (CreateInput, int, error) {
	out := CreateInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Content:     strings.TrimSpace(in.Content),
		Author:      strings.TrimSpace(in.Author),
	}
	if err := checkTitle(out.Title); err != nil {
		return out, 0, err
	}
	if err := checkDescription(out.Description); err != nil {
		return out, 0, err
	}
	words, err := checkContent(out.Content)
	if err != nil {
		return out, 0, err
	}
	if err := checkTags(in.Tags); err != nil {
		return out, 0, err
	}
	out.Tags = NormalizeTags(in.Tags)
	return out, words, nil
}

// ValidateUpdate checks only the supplied fields, using the create rules, and
// returns the normalized patch. UpdatedAt is left for the caller to stamp.
func ValidateUpdate(in UpdateInput) (Patch, error) {
	var p Patch
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if err := checkTitle(t); err != nil {
			return Patch{}, err
		}
		p.Title = &t
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if err := checkDescription(d); err != nil {
			return Patch{}, err
		}
		p.Description = &d
	}
	if in.Content != nil {
		c := strings.TrimSpace(*in.Content)
		words, err := checkContent(c)
		if err != nil {
			return Patch{}, err
		}
		p.Content = &c
		p.WordCount = words
	}
	if in.Tags != nil {
		if err := checkTags(*in.Tags); err != nil {
			return Patch{}, err
		}
		p.Tags = NormalizeTags(*in.Tags)
	}
	return p, nil
}
