package seed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"lcnetwork/internal/database"
	"lcnetwork/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	SkipBcrypt bool
	DryRun     bool
	BatchSize  int
	MaxDays    int
	RandomSeed int64
}

// Preset describes the shape of a seeded network. Ratios are fractions of
// NumPosts; whatever is left after pending and rejected is published.
type Preset struct {
	Name               string  `yaml:"name"`
	NumUsers           int     `yaml:"users"`
	NumModerators      int     `yaml:"moderators"`
	NumPosts           int     `yaml:"posts"`
	FriendsPerUser     int     `yaml:"friends_per_user"`
	PendingRequests    int     `yaml:"pending_requests"`
	PendingRatio       float64 `yaml:"pending_ratio"`
	RejectedRatio      float64 `yaml:"rejected_ratio"`
	MaxLikesPerPost    int     `yaml:"max_likes_per_post"`
	MaxCommentsPerPost int     `yaml:"max_comments_per_post"`
}

// Summary counts what a seeding run wrote.
type Summary struct {
	Users       int
	Posts       int
	Pending     int
	Friendships int
	Comments    int
	Likes       int
}

// BuiltInPresets are always available without a presets file.
var BuiltInPresets = map[string]Preset{
	"small": {
		Name: "small", NumUsers: 10, NumModerators: 1, NumPosts: 30,
		FriendsPerUser: 3, PendingRequests: 3, PendingRatio: 0.2, RejectedRatio: 0.05,
		MaxLikesPerPost: 5, MaxCommentsPerPost: 3,
	},
	"default": {
		Name: "default", NumUsers: 50, NumModerators: 3, NumPosts: 200,
		FriendsPerUser: 8, PendingRequests: 15, PendingRatio: 0.15, RejectedRatio: 0.05,
		MaxLikesPerPost: 20, MaxCommentsPerPost: 6,
	},
	"busy-queue": {
		Name: "busy-queue", NumUsers: 30, NumModerators: 5, NumPosts: 300,
		FriendsPerUser: 4, PendingRequests: 5, PendingRatio: 0.6, RejectedRatio: 0.1,
		MaxLikesPerPost: 4, MaxCommentsPerPost: 2,
	},
}

// LoadPresets reads a YAML list of presets and merges it over the built-ins.
func LoadPresets(path string) (map[string]Preset, error) {
	presets := make(map[string]Preset, len(BuiltInPresets))
	for k, v := range BuiltInPresets {
		presets[k] = v
	}
	if path == "" {
		return presets, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	for _, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		presets[p.Name] = p
	}
	return presets, nil
}

// Validate rejects presets that cannot be seeded.
func (p Preset) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("preset name is required")
	case p.NumUsers < 2:
		return fmt.Errorf("preset %s: at least 2 users required", p.Name)
	case p.NumPosts < 0 || p.NumModerators < 0:
		return fmt.Errorf("preset %s: counts cannot be negative", p.Name)
	case p.PendingRatio < 0 || p.RejectedRatio < 0 || p.PendingRatio+p.RejectedRatio > 1:
		return fmt.Errorf("preset %s: pending_ratio + rejected_ratio must be within [0, 1]", p.Name)
	}
	return nil
}

// statusCounts splits total posts into published, pending and rejected.
func statusCounts(total int, p Preset) (published, pending, rejected int) {
	pending = int(float64(total) * p.PendingRatio)
	rejected = int(float64(total) * p.RejectedRatio)
	published = total - pending - rejected
	return published, pending, rejected
}

// Seeder writes a preset's worth of demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a new Seeder.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// ClearAll deletes every row from the schema-managed tables, children first.
func (s *Seeder) ClearAll() error {
	slog.Info("clearing existing data")
	tables := slices.Clone(database.PersistentModels())
	slices.Reverse(tables)
	for _, m := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// Run seeds users, the friendship mesh, posts with engagement, and queue
// items for pending posts.
func (s *Seeder) Run(p Preset) (*Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	slog.Info("seeding", slog.String("preset", p.Name),
		slog.Int("users", p.NumUsers), slog.Int("posts", p.NumPosts))

	sum := &Summary{}
	users, err := s.seedUsers(p, sum)
	if err != nil {
		return nil, err
	}
	if err := s.seedFriendships(users, p, sum); err != nil {
		return nil, err
	}
	if err := s.seedPosts(users, p, sum); err != nil {
		return nil, err
	}

	slog.Info("seeding complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("pending", sum.Pending),
		slog.Int("friendships", sum.Friendships),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
	)
	return sum, nil
}

func (s *Seeder) seedUsers(p Preset, sum *Summary) ([]*models.User, error) {
	users := make([]*models.User, 0, p.NumUsers+p.NumModerators)
	for range p.NumUsers {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	for i := range p.NumModerators {
		name := fmt.Sprintf("moderator%d", i+1)
		u, err := s.factory.CreateUser(func(u *models.User) {
			u.Username = name
			u.Email = name + "@example.com"
			u.FullName = fmt.Sprintf("Moderator %d", i+1)
			u.Roles = append(u.Roles, models.UserRole{Role: models.RoleModerator})
		})
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	return users, nil
}

// seedFriendships links each member to the next FriendsPerUser members on a
// ring, then adds pending requests between members that are not yet linked.
func (s *Seeder) seedFriendships(users []*models.User, p Preset, sum *Summary) error {
	n := len(users)
	linked := make(map[[2]int]bool)
	key := func(a, b int) [2]int {
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}

	for i := range n {
		for step := 1; step <= p.FriendsPerUser && step < n; step++ {
			j := (i + step) % n
			if linked[key(i, j)] {
				continue
			}
			if err := s.factory.CreateFriendship(users[i], users[j], models.FriendshipStatusAccepted); err != nil {
				return fmt.Errorf("seed friendship: %w", err)
			}
			linked[key(i, j)] = true
			sum.Friendships++
		}
	}

	for range p.PendingRequests {
		i, j := s.factory.rng.Intn(n), s.factory.rng.Intn(n)
		if i == j || linked[key(i, j)] {
			continue
		}
		if err := s.factory.CreateFriendship(users[i], users[j], models.FriendshipStatusPending); err != nil {
			return fmt.Errorf("seed friend request: %w", err)
		}
		linked[key(i, j)] = true
		sum.Friendships++
	}
	return nil
}

func (s *Seeder) seedPosts(users []*models.User, p Preset, sum *Summary) error {
	published, pending, rejected := statusCounts(p.NumPosts, p)
	rng := s.factory.rng

	// Published posts carry no queue item, so they go in batches.
	visible := make([]*models.Post, 0, published)
	for range published {
		visible = append(visible, s.factory.BuildPost(users[rng.Intn(len(users))], models.PostStatusPublished))
	}
	if err := s.factory.CreatePostsBatch(visible); err != nil {
		return fmt.Errorf("create published posts: %w", err)
	}
	sum.Posts += len(visible)

	for range pending {
		post, err := s.factory.CreatePost(users[rng.Intn(len(users))], models.PostStatusPending)
		if err != nil {
			return err
		}
		priority := []int{models.PriorityDefault, models.PriorityReview, models.PriorityFlag}[rng.Intn(3)]
		if _, err := s.factory.EnqueuePost(post, priority); err != nil {
			return err
		}
		sum.Posts++
		sum.Pending++
	}
	for range rejected {
		if _, err := s.factory.CreatePost(users[rng.Intn(len(users))], models.PostStatusRejected); err != nil {
			return err
		}
		sum.Posts++
	}

	for _, post := range visible {
		if err := s.seedEngagement(users, post, p, sum); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedEngagement(users []*models.User, post *models.Post, p Preset, sum *Summary) error {
	rng := s.factory.rng
	if p.MaxLikesPerPost > 0 {
		for _, idx := range rng.Perm(len(users))[:min(rng.Intn(p.MaxLikesPerPost+1), len(users))] {
			if err := s.factory.LikePost(users[idx], post); err != nil {
				return err
			}
			sum.Likes++
		}
	}
	if p.MaxCommentsPerPost <= 0 {
		return nil
	}

	var roots []*models.Comment
	for range rng.Intn(p.MaxCommentsPerPost + 1) {
		var parent *models.Comment
		if len(roots) > 0 && rng.Intn(3) == 0 {
			parent = roots[rng.Intn(len(roots))]
		}
		c, err := s.factory.CreateComment(users[rng.Intn(len(users))], post, parent)
		if err != nil {
			return err
		}
		if parent == nil {
			roots = append(roots, c)
		}
		sum.Comments++
	}
	return nil
}
