package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// normalize maps a read response onto comments. The response is either a bare
// array or an object whose "value" holds the array. Field names vary between
// backends, so each field is looked up under its known aliases.
func (c *Client) normalize(body []byte) ([]comment.Comment, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []comment.Comment{}, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}

	items := gjson.ParseBytes(body)
	if items.IsObject() {
		items = items.Get("value")
	}

	comments := []comment.Comment{}
	if !items.IsArray() {
		return comments, nil
	}

	items.ForEach(func(_, item gjson.Result) bool {
		cm, ok := c.normalizeItem(item)
		if ok {
			comments = append(comments, cm)
		} else {
			c.logger.Debug("dropping comment without id", "record", item.Raw)
		}
		return true
	})
	return comments, nil
}

func (c *Client) normalizeItem(item gjson.Result) (comment.Comment, bool) {
	id := firstString(item, "CommentId", "ID", "id")
	if id == "" {
		return comment.Comment{}, false
	}

	createdAt := firstString(item, "CreatedAt", "Created", "createdAt")
	updatedAt := firstString(item, "UpdatedAt", "Modified", "updatedAt")
	if updatedAt == "" {
		updatedAt = createdAt
	}

	return comment.Comment{
		ID:        id,
		ParentID:  firstString(item, "ParentId", "parentId"),
		Author:    c.author(item),
		Text:      firstString(item, "CommentText", "text"),
		X:         firstFloat(item, "PositionX", "x"),
		Y:         firstFloat(item, "PositionY", "y"),
		SlideID:   firstString(item, "SlideId", "slideId"),
		Resolved:  firstBool(item, "Resolved", "resolved"),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, true
}

// author resolves the display name. Backends that post through a service
// account report that account as Author; the name the client sent is kept in
// a separate column.
func (c *Client) author(item gjson.Result) string {
	var name string
	if a := item.Get("Author"); a.IsObject() {
		name = firstString(a, "Title", "DisplayName", "Email")
	} else if a.Type == gjson.String {
		name = a.Str
	}
	if name == "" || c.placeholders[name] {
		name = firstString(item, "CommentAuthor", "commentauthor", "author")
	}
	return name
}

func firstString(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		v := item.Get(k)
		switch v.Type {
		case gjson.String:
			if v.Str != "" {
				return v.Str
			}
		case gjson.Number:
			return v.Raw
		}
	}
	return ""
}

func firstFloat(item gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		v := item.Get(k)
		switch v.Type {
		case gjson.Number:
			return v.Num
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
				return f
			}
			return 0
		}
	}
	return 0
}

func firstBool(item gjson.Result, keys ...string) bool {
	for _, k := range keys {
		v := item.Get(k)
		if v.Exists() && v.Type != gjson.Null {
			return v.Bool()
		}
	}
	return false
}
