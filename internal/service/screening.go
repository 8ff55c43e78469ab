package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"

	lru "github.com/hashicorp/golang-lru/v2"
)

const compiledKeywordCacheSize = 512

// ScreenResult lists the banned keywords found in a text and the queue
// priority they call for.
type ScreenResult struct {
	Issues   []string
	Priority int
}

// Matched reports whether any keyword hit.
func (r ScreenResult) Matched() bool {
	return len(r.Issues) > 0
}

// KeywordScreener matches text against the active banned keyword list.
// Compiled matchers are kept in an LRU keyed by keyword.
type KeywordScreener struct {
	keywords repository.KeywordRepository
	compiled *lru.Cache[string, *regexp.Regexp]
}

func NewKeywordScreener(keywords repository.KeywordRepository) *KeywordScreener {
	compiled, err := lru.New[string, *regexp.Regexp](compiledKeywordCacheSize)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &KeywordScreener{keywords: keywords, compiled: compiled}
}

func (s *KeywordScreener) Screen(ctx context.Context, text string) (ScreenResult, error) {
	var res ScreenResult
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return res, nil
	}

	active, err := s.keywords.ListActive(ctx)
	if err != nil {
		return res, err
	}
	for _, kw := range active {
		if !s.matches(ctx, kw, text) {
			continue
		}
		res.Issues = append(res.Issues, "keyword:"+kw.KeywordNormalized)
		if p := kw.Severity.Priority(); p > res.Priority {
			res.Priority = p
		}
	}
	return res, nil
}

func (s *KeywordScreener) matches(ctx context.Context, kw models.BannedKeyword, text string) bool {
	re, err := s.compile(kw)
	if err != nil {
		slog.WarnContext(ctx, "skipping invalid keyword pattern",
			slog.Uint64("keyword_id", uint64(kw.ID)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return re.MatchString(text)
}

// compile returns the cached matcher for kw. Plain keywords match whole
// words only, so "ass" does not hit "classic".
func (s *KeywordScreener) compile(kw models.BannedKeyword) (*regexp.Regexp, error) {
	key, expr := "re:"+kw.Keyword, "(?i)"+kw.Keyword
	if !kw.IsRegex {
		key = "plain:" + kw.KeywordNormalized
		expr = `(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(kw.KeywordNormalized) + `(?:$|[^\p{L}\p{N}_])`
	}
	if re, ok := s.compiled.Get(key); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	s.compiled.Add(key, re)
	return re, nil
}

// enqueuePostReview puts a post on the review queue unless an open item for
// it already exists, in which case the item's priority is raised to match
// the screening result.
func enqueuePostReview(ctx context.Context, r repository.Repos, postID uint, screen ScreenResult) (*models.ModerationQueueItem, error) {
	open, err := r.Queue.FindOpen(ctx, models.QueueTargetPost, postID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if screen.Priority > open.Priority {
			if err := r.Queue.RaisePriority(ctx, open.ID, screen.Priority); err != nil {
				return nil, err
			}
			open.Priority = screen.Priority
		}
		return open, nil
	}

	item := &models.ModerationQueueItem{
		TargetType: models.QueueTargetPost,
		TargetID:   postID,
		Source:     models.QueueSourceManualReview,
		Priority:   models.PriorityDefault,
	}
	if screen.Matched() {
		item.Source = models.QueueSourceAIFlagged
		item.Priority = screen.Priority
		item.AIRecommendation = "review"
		item.AIDetectedIssues = screen.Issues
	}
	if err := r.Queue.Enqueue(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
