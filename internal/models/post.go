package models

import (
	"strings"
	"time"
)

// Post represents a blog article. A Post with a nil ID has never been saved.
type Post struct {
	id           *int64
	author       string
	title        string
	createdDate  time.Time
	modifiedDate time.Time
	body         string

	// persisted is true when the data is saved and up-to-date in storage.
	persisted bool
}

// NewPost builds an unsaved post from submitted form input.
func NewPost(author, title, body string) *Post {
	now := time.Now().UTC().Truncate(time.Second)
	return &Post{
		author:       author,
		title:        title,
		createdDate:  now,
		modifiedDate: now,
		body:         body,
	}
}

// RestorePost rebuilds a post from a storage row. The caller decides
// whether the result counts as persisted.
func RestorePost(id int64, author, title string, createdDate, modifiedDate time.Time, body string) *Post {
	return &Post{
		id:           &id,
		author:       author,
		title:        title,
		createdDate:  createdDate,
		modifiedDate: modifiedDate,
		body:         body,
	}
}

func (p *Post) ID() *int64 {
	return p.id
}

func (p *Post) SetID(id *int64) {
	p.id = id
}

// HasID reports whether the post has been assigned a storage identifier.
func (p *Post) HasID() bool {
	return p.id != nil
}

func (p *Post) Author() string {
	return p.author
}

func (p *Post) SetAuthor(author string) {
	p.author = author
}

func (p *Post) Title() string {
	return p.title
}

func (p *Post) SetTitle(title string) {
	p.title = title
}

func (p *Post) CreatedDate() time.Time {
	return p.createdDate
}

func (p *Post) SetCreatedDate(t time.Time) {
	p.createdDate = t
}

func (p *Post) ModifiedDate() time.Time {
	return p.modifiedDate
}

func (p *Post) SetModifiedDate(t time.Time) {
	p.modifiedDate = t
}

func (p *Post) Body() string {
	return p.body
}

func (p *Post) SetBody(body string) {
	p.body = body
}

func (p *Post) Persisted() bool {
	return p.persisted
}

func (p *Post) SetPersisted(persisted bool) {
	p.persisted = persisted
}

// NewPostForm defines the fields of the new-post web form
type NewPostForm struct {
	Author string `form:"author"`
	Title  string `form:"title" validate:"required"`
	Body   string `form:"body" validate:"required,min=20"`
}

// TrimSpace strips surrounding whitespace so blank and padded input is
// validated on its visible content.
func (f *NewPostForm) TrimSpace() {
	f.Author = strings.TrimSpace(f.Author)
	f.Title = strings.TrimSpace(f.Title)
	f.Body = strings.TrimSpace(f.Body)
}

// DefaultNewPostForm returns the placeholder values shown on an empty form
func DefaultNewPostForm() NewPostForm {
	return NewPostForm{
		Author: "Your name",
		Title:  "Title of the Post",
		Body:   "Blog post content",
	}
}
