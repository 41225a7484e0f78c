package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for content fields.
const (
	maxTitleLen    = 300
	maxBodyLen     = 100_000
	maxCommentLen  = 2_000
	maxSearchLen   = 200
	maxPerPage     = 100
	defaultPerPage = 20
)

// validateContentInput checks create/update inputs and returns the first
// problem found, or an empty string.
func validateContentInput(title, body string) string {
	if strings.TrimSpace(title) == "" {
		return "title is required"
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "title is too long (max 300 characters)"
	}
	if strings.TrimSpace(body) == "" {
		return "body is required"
	}
	if utf8.RuneCountInString(body) > maxBodyLen {
		return "body is too long (max 100,000 characters)"
	}
	return ""
}

// validateComment bounds optional reviewer comments.
func validateComment(comment string) string {
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return "comment is too long (max 2,000 characters)"
	}
	return ""
}
