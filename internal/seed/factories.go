// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"lcnetwork/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the login password of every seeded account.
const DefaultPassword = "Passw0rd!"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)

	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	// #nosec G404: acceptable for seeding
	rng := rand.New(rand.NewSource(seed))
	return &Factory{db: db, opts: opts, rng: rng, hash: string(hash), nextID: 1000}, nil
}

func (f *Factory) create(v any, assignID func(uint), omit ...string) error {
	if f.opts.DryRun {
		f.nextID++
		assignID(f.nextID)
		return nil
	}
	if len(omit) > 0 {
		return f.db.Omit(omit...).Create(v).Error
	}
	return f.db.Create(v).Error
}

// pastTime spreads timestamps across the configured window.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// CreateUser constructs and persists a verified member account.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	username := strings.ToLower(fmt.Sprintf("%s_%s%d", first, last, gofakeit.Number(100, 9999)))
	hash := f.hash
	created := f.pastTime()

	user := &models.User{
		Email:           username + "@example.com",
		Username:        username,
		PasswordHash:    &hash,
		FullName:        first + " " + last,
		PhoneNumber:     gofakeit.Numerify("+1##########"),
		AvatarURL:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		AccountStatus:   models.AccountStatusActive,
		IsEmailVerified: true,
		OTPVerified:     true,
		CreatedAt:       created,
		Roles:           []models.UserRole{{Role: models.RoleUser}},
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.create(user, func(id uint) { user.ID = id }); err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return user, nil
}

// BuildPost constructs a post with zero to three media items but does not
// persist it. Published posts get a publication time and moderator approval.
func (f *Factory) BuildPost(author *models.User, status models.PostStatus) *models.Post {
	created := f.pastTime()
	post := &models.Post{
		UserID:           author.ID,
		Caption:          gofakeit.Sentence(f.rng.Intn(18) + 3),
		Status:           status,
		ModerationStatus: models.ModerationNotChecked,
		Visibility:       models.VisibilityPublic,
		CreatedAt:        created,
		UpdatedAt:        created,
	}

	for i := range f.rng.Intn(4) {
		m := models.PostMedia{MediaType: models.MediaTypeImage, DisplayOrder: i}
		if f.rng.Intn(5) == 0 {
			m.MediaType = models.MediaTypeVideo
			m.MediaURL = fmt.Sprintf("/uploads/posts/videos/%s.mp4", gofakeit.UUID())
		} else {
			m.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
		}
		post.Media = append(post.Media, m)
	}
	post.ContentType = models.DeriveContentType(post.Media)

	switch status {
	case models.PostStatusPublished:
		published := created.Add(time.Duration(f.rng.Intn(120)+1) * time.Minute)
		post.PublishedAt = &published
		post.ModerationStatus = models.ModerationModeratorApproved
		post.ModeratedAt = &published
	case models.PostStatusRejected:
		decision := models.DecisionReject
		post.ModerationStatus = models.ModerationModeratorRejected
		post.ModeratorDecision = &decision
		post.ModeratorReason = "Seeded rejection"
		post.ModeratedAt = &created
	}
	return post
}

// CreatePost builds and persists a post with its media.
func (f *Factory) CreatePost(author *models.User, status models.PostStatus, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, status)
	for _, override := range overrides {
		override(post)
	}
	if err := f.create(post, func(id uint) { post.ID = id }, "Author"); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		slog.Info("dry-run post batch", slog.Int("posts", len(posts)))
		return nil
	}
	size := f.opts.BatchSize
	if size <= 0 {
		size = 100
	}
	return f.db.Omit("Author").CreateInBatches(posts, size).Error
}

// CreateComment persists a comment on post and bumps its comment_count.
func (f *Factory) CreateComment(author *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   gofakeit.Sentence(f.rng.Intn(12) + 2),
		CreatedAt: f.pastTime(),
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}
	if err := f.create(comment, func(id uint) { comment.ID = id }, "Author"); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	post.CommentCount++
	return comment, f.bump(post.ID, "comment_count")
}

// LikePost persists a like and bumps the post's like_count.
func (f *Factory) LikePost(user *models.User, post *models.Post) error {
	like := &models.Like{UserID: user.ID, TargetType: models.LikeTargetPost, TargetID: post.ID}
	if err := f.create(like, func(id uint) { like.ID = id }); err != nil {
		return fmt.Errorf("create like: %w", err)
	}
	post.LikeCount++
	return f.bump(post.ID, "like_count")
}

func (f *Factory) bump(postID uint, column string) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

// CreateFriendship stores both directions of a pair with the same status
// and requester.
func (f *Factory) CreateFriendship(requester, addressee *models.User, status models.FriendshipStatus) error {
	rows := []models.Friendship{
		{UserID: requester.ID, FriendID: addressee.ID, Status: status, RequesterID: requester.ID},
		{UserID: addressee.ID, FriendID: requester.ID, Status: status, RequesterID: requester.ID},
	}
	if f.opts.DryRun {
		return nil
	}
	return f.db.Omit("User", "Friend").Create(&rows).Error
}

// EnqueuePost puts a pending post on the moderation queue.
func (f *Factory) EnqueuePost(post *models.Post, priority int) (*models.ModerationQueueItem, error) {
	item := &models.ModerationQueueItem{
		TargetType: models.QueueTargetPost,
		TargetID:   post.ID,
		Source:     models.QueueSourceAIFlagged,
		Priority:   priority,
		Status:     models.QueueStatusPending,
		CreatedAt:  post.CreatedAt,
	}
	if err := f.create(item, func(id uint) { item.ID = id }); err != nil {
		return nil, fmt.Errorf("enqueue post %d: %w", post.ID, err)
	}
	return item, nil
}
