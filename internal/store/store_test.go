package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"weblogd/internal/auth"
	"weblogd/internal/blobstore"
	"weblogd/internal/models"
)

// testStore creates a temporary store backed by a local CAS.
func testStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	dir := t.TempDir()
	cas, err := blobstore.NewLocalCAS(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	opts = append([]Option{WithBlobStore(cas)}, opts...)
	st, err := Open(filepath.Join(dir, "test.db"), opts...)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testUser(t *testing.T, st *Store, username string, admin bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("password-" + username)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := st.CreateUser(context.Background(), username, hash, UserProfile{Email: username + "@example.com"}, admin)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func testBlog(t *testing.T, st *Store, name string, owner *models.User) *models.Document {
	t.Helper()
	blog, err := st.CreateBlog(context.Background(), BlogSpec{Name: name, OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("create blog %s: %v", name, err)
	}
	return blog
}

func testPost(t *testing.T, st *Store, blog *models.Document, title string, postDate time.Time, tags string) *models.Document {
	t.Helper()
	ctx := context.Background()
	parent, err := st.EnsurePostParent(ctx, blog, postDate)
	if err != nil {
		t.Fatalf("ensure post parent: %v", err)
	}
	post := &models.Document{
		Type:     models.DocumentBlogPost,
		Name:     title,
		OwnerID:  blog.OwnerID,
		Body:     "<p>" + title + "</p>",
		Tags:     tags,
		PostDate: postDate,
	}
	if err := st.InsertDocument(ctx, post, parent); err != nil {
		t.Fatalf("insert post %q: %v", title, err)
	}
	return post
}

func TestCreateBlogAndPostHierarchy(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	owner := testUser(t, st, "alice", false)

	blog := testBlog(t, st, "My Blog", owner)
	if blog.AliasPath != "/my-blog" {
		t.Fatalf("expected alias path /my-blog, got %q", blog.AliasPath)
	}
	if blog.TagGroupID == 0 {
		t.Fatal("expected blog to own a tag group")
	}
	if blog.Culture != defaultCulture {
		t.Fatalf("expected default culture, got %q", blog.Culture)
	}

	postDate := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	month, err := st.EnsurePostParent(ctx, blog, postDate)
	if err != nil {
		t.Fatalf("ensure month: %v", err)
	}
	if month.AliasPath != "/my-blog/2024-03" || month.Name != "March 2024" {
		t.Fatalf("unexpected month node: %q %q", month.AliasPath, month.Name)
	}
	again, err := st.EnsurePostParent(ctx, blog, postDate.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("ensure month again: %v", err)
	}
	if again.ID != month.ID {
		t.Fatalf("expected month node reuse, got %d and %d", month.ID, again.ID)
	}

	post := testPost(t, st, blog, "Hello World", postDate, `"go","Databases"`)
	if post.AliasPath != "/my-blog/2024-03/hello-world" {
		t.Fatalf("unexpected post alias path %q", post.AliasPath)
	}
	if post.GUID == "" {
		t.Fatal("expected post guid")
	}

	tags, err := st.DocumentTags(ctx, post.ID)
	if err != nil {
		t.Fatalf("document tags: %v", err)
	}
	if len(tags) != 2 || tags[0] != "Databases" || tags[1] != "go" {
		t.Fatalf("unexpected tags %v", tags)
	}

	owning, err := st.BlogForPost(ctx, post)
	if err != nil {
		t.Fatalf("blog for post: %v", err)
	}
	if owning == nil || owning.ID != blog.ID {
		t.Fatalf("expected blog %d, got %#v", blog.ID, owning)
	}

	if got, err := st.GetPost(ctx, post.ID); err != nil || got == nil {
		t.Fatalf("get post: %v %#v", err, got)
	}
	if got, err := st.GetBlog(ctx, post.ID); err != nil || got != nil {
		t.Fatalf("expected post not to resolve as blog, got %#v err=%v", got, err)
	}
	if got, err := st.GetDocumentByGUID(ctx, post.GUID); err != nil || got == nil || got.ID != post.ID {
		t.Fatalf("get by guid: %#v err=%v", got, err)
	}
}

func TestInsertDocumentMakesAliasUnique(t *testing.T) {
	st := testStore(t)
	owner := testUser(t, st, "alice", false)
	blog := testBlog(t, st, "Notes", owner)
	postDate := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	first := testPost(t, st, blog, "Same Title", postDate, "")
	second := testPost(t, st, blog, "Same Title", postDate, "")
	if first.AliasPath == second.AliasPath {
		t.Fatalf("expected distinct alias paths, both %q", first.AliasPath)
	}
}

func TestListPostsNewestFirstWithinBlog(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	owner := testUser(t, st, "alice", false)
	blogA := testBlog(t, st, "a", owner)
	blogAB := testBlog(t, st, "ab", owner)

	base := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	testPost(t, st, blogA, "old", base, "")
	testPost(t, st, blogA, "new", base.AddDate(0, 2, 0), "")
	testPost(t, st, blogA, "middle", base.AddDate(0, 0, 5), "")
	testPost(t, st, blogAB, "other blog", base.AddDate(1, 0, 0), "")

	posts, err := st.ListPosts(ctx, blogA)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	var names []string
	for _, post := range posts {
		names = append(names, post.Name)
	}
	if len(names) != 3 || names[0] != "new" || names[1] != "middle" || names[2] != "old" {
		t.Fatalf("unexpected post order %v", names)
	}
}

func TestListBlogsByOwner(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	alice := testUser(t, st, "alice", false)
	bob := testUser(t, st, "bob", false)
	testBlog(t, st, "Alice One", alice)
	testBlog(t, st, "Alice Two", alice)
	testBlog(t, st, "Bob", bob)

	all, err := st.ListBlogs(ctx, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 blogs, got %d", len(all))
	}
	owned, err := st.ListBlogs(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list owned: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 blogs for alice, got %d", len(owned))
	}
}

func TestInheritedTagGroup(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	owner := testUser(t, st, "alice", false)
	parent := testBlog(t, st, "Company", owner)

	child, err := st.CreateBlog(ctx, BlogSpec{Name: "Team", OwnerID: owner.ID, ParentID: parent.ID, InheritTags: true})
	if err != nil {
		t.Fatalf("create child blog: %v", err)
	}
	if child.TagGroupID != 0 {
		t.Fatalf("expected no own tag group, got %d", child.TagGroupID)
	}
	inherited, err := st.InheritedTagGroupID(ctx, child)
	if err != nil {
		t.Fatalf("inherited group: %v", err)
	}
	if inherited != parent.TagGroupID {
		t.Fatalf("expected inherited group %d, got %d", parent.TagGroupID, inherited)
	}

	testPost(t, st, child, "Tagged", time.Now().UTC(), `"release notes",infra`)
	tags, err := st.GroupTags(ctx, parent.TagGroupID)
	if err != nil {
		t.Fatalf("group tags: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "infra" || tags[1].Name != "release notes" {
		t.Fatalf("unexpected group tags %#v", tags)
	}
	if tags[0].Count != 1 {
		t.Fatalf("expected tag usage count 1, got %d", tags[0].Count)
	}
}

func TestUpdateDocumentReplacesTags(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	owner := testUser(t, st, "alice", false)
	blog := testBlog(t, st, "Blog", owner)
	post := testPost(t, st, blog, "Post", time.Now().UTC(), `"a","b"`)

	post.Tags = `"c"`
	post.Body = "<p>changed</p>"
	if err := st.UpdateDocument(ctx, post); err != nil {
		t.Fatalf("update: %v", err)
	}
	tags, err := st.DocumentTags(ctx, post.ID)
	if err != nil {
		t.Fatalf("document tags: %v", err)
	}
	if len(tags) != 1 || tags[0] != "c" {
		t.Fatalf("unexpected tags after update %v", tags)
	}
	got, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Body != "<p>changed</p>" {
		t.Fatalf("expected body to be updated, got %q", got.Body)
	}
}

func TestDeleteDocumentRemovesSubtree(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	owner := testUser(t, st, "alice", false)
	blog := testBlog(t, st, "Blog", owner)
	post := testPost(t, st, blog, "Post", time.Now().UTC(), "")

	if err := st.DeleteDocument(ctx, blog); err != nil {
		t.Fatalf("delete blog: %v", err)
	}
	got, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got != nil {
		t.Fatal("expected post to be removed with its blog")
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "quoted", raw: `"a","b"`, want: []string{"a", "b"}},
		{name: "quoted comma", raw: `"x, y",z`, want: []string{"x, y", "z"}},
		{name: "dedupe case insensitive", raw: `Go, go ,GO`, want: []string{"Go"}},
		{name: "blank entries", raw: `, ,"" ,a`, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTags(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestIsAuthorizedThroughAncestors(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	owner := testUser(t, st, "alice", false)
	reader := testUser(t, st, "bob", false)
	admin := testUser(t, st, "root", true)
	blog := testBlog(t, st, "Blog", owner)
	post := testPost(t, st, blog, "Post", time.Now().UTC(), "")

	if err := st.Grant(ctx, blog.ID, reader.ID, models.PermissionRead); err != nil {
		t.Fatalf("grant: %v", err)
	}

	tests := []struct {
		name       string
		user       *models.User
		permission models.Permission
		want       bool
	}{
		{name: "inherited read", user: reader, permission: models.PermissionRead, want: true},
		{name: "no modify grant", user: reader, permission: models.PermissionModify, want: false},
		{name: "admin bypass", user: admin, permission: models.PermissionDelete, want: true},
		{name: "owner without grant", user: owner, permission: models.PermissionRead, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.IsAuthorized(ctx, tt.user, post, tt.permission)
			if err != nil {
				t.Fatalf("is authorized: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	removed, err := st.Revoke(ctx, blog.ID, reader.ID, models.PermissionRead)
	if err != nil || !removed {
		t.Fatalf("revoke: removed=%v err=%v", removed, err)
	}
	if ok, _ := st.IsAuthorized(ctx, reader, post, models.PermissionRead); ok {
		t.Fatal("expected read to be denied after revoke")
	}
}

func TestStoreInfo(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	owner := testUser(t, st, "alice", false)
	blog := testBlog(t, st, "Blog", owner)
	testPost(t, st, blog, "One", time.Now().UTC(), "")
	testPost(t, st, blog, "Two", time.Now().UTC(), "")

	info, err := st.StoreInfo(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.SchemaVersion == 0 {
		t.Fatal("expected non-zero schema version")
	}
	if info.TotalUsers != 1 {
		t.Fatalf("expected 1 user, got %d", info.TotalUsers)
	}
	if info.DocumentCounts[string(models.DocumentBlogPost)] != 2 {
		t.Fatalf("expected 2 posts, got %v", info.DocumentCounts)
	}
	if info.DocumentCounts[string(models.DocumentBlog)] != 1 {
		t.Fatalf("expected 1 blog, got %v", info.DocumentCounts)
	}
}

func TestOpenReadsPoolSettingsFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{name: "default", env: "", want: maxOpenConns},
		{name: "override", env: "4", want: 4},
		{name: "invalid keeps default", env: "many", want: maxOpenConns},
		{name: "non-positive keeps default", env: "0", want: maxOpenConns},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WEBLOGD_DB_MAX_OPEN_CONNS", tt.env)
			st := testStore(t)
			if got := st.DB().Stats().MaxOpenConnections; got != tt.want {
				t.Fatalf("expected %d open connections, got %d", tt.want, got)
			}
		})
	}
}

func TestConnMaxLifetimeFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want time.Duration
	}{
		{env: "", want: connMaxLifetime},
		{env: "90s", want: 90 * time.Second},
		{env: "30", want: 30 * time.Second},
		{env: "-5", want: connMaxLifetime},
		{env: "soon", want: connMaxLifetime},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("WEBLOGD_DB_CONN_MAX_LIFETIME", tt.env)
			if got := durationFromEnv(connMaxLifetimeEnvKey, connMaxLifetime); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
