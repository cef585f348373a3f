package weblog

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Post is the MetaWeblog post struct.
type Post struct {
	DateCreated time.Time `xmlrpc:"dateCreated"`
	Description string    `xmlrpc:"description"`
	Title       string    `xmlrpc:"title"`
	Categories  []string  `xmlrpc:"categories"`
	Permalink   string    `xmlrpc:"permalink"`
	PostID      string    `xmlrpc:"postid"`
	UserID      string    `xmlrpc:"userid"`
	Slug        string    `xmlrpc:"wp_slug"`
}

// Validate checks the fields a stored post cannot do without.
func (p Post) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.By(notBlank("title is required"))),
	)
}

// CategoryInfo describes one tag as a MetaWeblog category.
type CategoryInfo struct {
	Description string `xmlrpc:"description"`
	HTMLURL     string `xmlrpc:"htmlUrl"`
	RSSURL      string `xmlrpc:"rssUrl"`
	Title       string `xmlrpc:"title"`
	CategoryID  string `xmlrpc:"categoryid"`
}

// BlogInfo is one entry of blogger.getUsersBlogs.
type BlogInfo struct {
	BlogID   string `xmlrpc:"blogid"`
	URL      string `xmlrpc:"url"`
	BlogName string `xmlrpc:"blogName"`
}

// UserInfo is the result of blogger.getUserInfo.
type UserInfo struct {
	UserID    string `xmlrpc:"userid"`
	FirstName string `xmlrpc:"firstname"`
	LastName  string `xmlrpc:"lastname"`
	Nickname  string `xmlrpc:"nickname"`
	Email     string `xmlrpc:"email"`
	URL       string `xmlrpc:"url"`
}

// MediaObject is an upload sent by metaWeblog.newMediaObject.
type MediaObject struct {
	Name string `xmlrpc:"name"`
	Type string `xmlrpc:"type"`
	Bits []byte `xmlrpc:"bits"`
}

// Validate checks that the upload carries a name and content.
func (m MediaObject) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.By(notBlank("name is required"))),
		validation.Field(&m.Bits, validation.Required.Error("bits are required")),
	)
}

// MediaObjectInfo is the result of metaWeblog.newMediaObject.
type MediaObjectInfo struct {
	URL string `xmlrpc:"url"`
}

// Credentials are the user name and password sent with every call.
type Credentials struct {
	Username string
	Password string
}

// Validate rejects empty credentials before they reach the authenticator.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.By(notBlank("username is required"))),
		validation.Field(&c.Password, validation.Required.Error("password is required")),
	)
}

func notBlank(message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return validation.NewError("validation_blank", message)
		}
		return nil
	}
}
