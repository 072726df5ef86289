package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"Wire/internal/identity"
	"Wire/internal/kv"
)

// mentionRegex finds @handle references in post content. The leading
// character class keeps email-style text from registering as a mention.
var mentionRegex = regexp.MustCompile(`(?:^|[^a-z0-9_@])@([a-z0-9_]{3,15})`)

const (
	previewLen     = 100
	ancestorsLimit = 50
	joinBatchSize  = 100
)

type postService struct {
	coord    *Coordinator
	store    kv.Store
	ids      IDGenerator
	events   EventPublisher
	users    UserOps
	notifier Notifier
	indexer  Indexer
	maxLen   int
	log      zerolog.Logger
}

// NewService wires the post domain. notifier and indexer may be nil in
// tests; both are best-effort collaborators.
func NewService(coordinator *Coordinator, store kv.Store, ids IDGenerator, events EventPublisher, userOps UserOps, notifier Notifier, indexer Indexer, maxContentLen int, log zerolog.Logger) Service {
	return &postService{
		coord:    coordinator,
		store:    store,
		ids:      ids,
		events:   events,
		users:    userOps,
		notifier: notifier,
		indexer:  indexer,
		maxLen:   maxContentLen,
		log:      log,
	}
}

// Create runs the write path: validate, mint an id, initialize the
// coordinator, maintain the authored and reply indexes, enqueue the
// fan-out event, bump the author post count, index for search and fire
// notifications. A fan-out enqueue failure does not fail the create;
// the post exists and readers see it through the snapshot.
func (s *postService) Create(ctx context.Context, authorID string, req CreateRequest) (*View, error) {
	author, err := s.users.Get(ctx, authorID)
	if err != nil {
		return nil, err
	}

	req.Content = strings.TrimSpace(req.Content)
	if err := validateCreate(req, s.maxLen); err != nil {
		return nil, err
	}

	// Resolve references before minting anything.
	var repostTarget, replyParent, quoteTarget *State
	if req.RepostOfID != "" {
		repostTarget, err = s.resolveLeaf(ctx, req.RepostOfID)
		if err != nil {
			return nil, err
		}
		if repostTarget.AuthorID == authorID {
			return nil, ErrSelfRepost
		}
		req.RepostOfID = repostTarget.ID
	}
	if req.ReplyToID != "" {
		replyParent, err = s.getLive(ctx, req.ReplyToID)
		if err != nil {
			return nil, err
		}
	}
	if req.QuoteOfID != "" {
		// Quoting a repost quotes the original it points at.
		quoteTarget, err = s.resolveLeaf(ctx, req.QuoteOfID)
		if err != nil {
			return nil, err
		}
		req.QuoteOfID = quoteTarget.ID
	}

	id, err := s.ids.Generate()
	if err != nil {
		return nil, fmt.Errorf("minting post id: %w", err)
	}

	// The repost edge is claimed first so a duplicate conflicts before
	// any row exists.
	if repostTarget != nil {
		if _, err := s.coord.AddRepost(ctx, repostTarget.ID, authorID); err != nil {
			return nil, err
		}
	}

	st := State{
		ID:       id,
		AuthorID: authorID,
		Author: Author{
			Handle:      author.Handle,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
		},
		Content:    req.Content,
		MediaURLs:  req.MediaURLs,
		ReplyToID:  req.ReplyToID,
		QuoteOfID:  req.QuoteOfID,
		RepostOfID: req.RepostOfID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.coord.Initialize(ctx, st); err != nil {
		if repostTarget != nil {
			if _, rbErr := s.coord.RemoveRepost(ctx, repostTarget.ID, authorID); rbErr != nil {
				s.log.Error().Err(rbErr).Str("postId", repostTarget.ID).Msg("repost rollback failed")
			}
		}
		return nil, err
	}

	if err := s.coord.AddAuthored(ctx, authorID, id); err != nil {
		s.log.Warn().Err(err).Str("postId", id).Msg("authored index write failed")
	}
	if replyParent != nil {
		if err := s.coord.AddReply(ctx, replyParent.ID, id); err != nil {
			s.log.Warn().Err(err).Str("postId", id).Msg("reply index write failed")
		}
		if err := s.coord.IncrementReplyCount(ctx, replyParent.ID); err != nil {
			s.log.Warn().Err(err).Str("postId", replyParent.ID).Msg("reply count bump failed")
		}
	}
	if quoteTarget != nil {
		if err := s.coord.IncrementQuoteCount(ctx, quoteTarget.ID); err != nil {
			s.log.Warn().Err(err).Str("postId", quoteTarget.ID).Msg("quote count bump failed")
		}
	}

	if err := s.events.PublishNewPost(ctx, id, authorID); err != nil {
		s.log.Error().Err(err).Str("postId", id).Msg("fan-out enqueue failed")
	}
	if err := s.users.IncrementPostCount(ctx, authorID); err != nil {
		s.log.Warn().Err(err).Str("userId", authorID).Msg("post count bump failed")
	}
	if s.indexer != nil && st.Content != "" {
		if err := s.indexer.IndexPost(ctx, id, st.Content, st.CreatedAt); err != nil {
			s.log.Warn().Err(err).Str("postId", id).Msg("search indexing failed")
		}
	}

	s.notifyForCreate(ctx, &st, author, repostTarget, replyParent, quoteTarget)

	view := View{Snapshot: st.snapshot()}
	s.joinReferences(ctx, &view)
	return &view, nil
}

func (s *postService) Get(ctx context.Context, id, viewerID string) (*View, error) {
	snap, err := s.loadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.Gone() {
		return nil, ErrPostNotFound
	}

	view := View{Snapshot: *snap}
	s.joinReferences(ctx, &view)
	s.viewerOverlay(ctx, &view, viewerID)
	return &view, nil
}

func (s *postService) Thread(ctx context.Context, id, viewerID string) (*Thread, error) {
	subject, err := s.Get(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}

	// Walk ancestors toward the root, bounded; a deleted ancestor ends
	// the visible chain.
	var ancestors []View
	parentID := subject.ReplyToID
	for parentID != "" && len(ancestors) < ancestorsLimit {
		snap, err := s.loadSnapshot(ctx, parentID)
		if err != nil || snap.Gone() {
			break
		}
		ancestors = append(ancestors, View{Snapshot: *snap})
		parentID = snap.ReplyToID
	}
	// Collected leaf-first; present root-first.
	for i, j := 0, len(ancestors)-1; i < j; i, j = i+1, j-1 {
		ancestors[i], ancestors[j] = ancestors[j], ancestors[i]
	}

	replyIDs, err := s.coord.ListReplies(ctx, id)
	if err != nil {
		return nil, err
	}
	replySnaps, err := s.Snapshots(ctx, replyIDs)
	if err != nil {
		return nil, err
	}
	replies := make([]View, 0, len(replySnaps))
	for _, snap := range replySnaps {
		replies = append(replies, View{Snapshot: snap})
	}

	return &Thread{Ancestors: ancestors, Post: *subject, Replies: replies}, nil
}

// Delete tombstones an authored post. Deleting a repost row also
// releases the repost edge on the original.
func (s *postService) Delete(ctx context.Context, id, actorID string) error {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return err
	}
	if st.AuthorID != actorID {
		return ErrNotAuthorized
	}
	if st.IsDeleted {
		return nil
	}

	if err := s.coord.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.coord.RemoveAuthored(ctx, actorID, id); err != nil {
		s.log.Warn().Err(err).Str("postId", id).Msg("authored index removal failed")
	}
	if st.ReplyToID != "" {
		if err := s.coord.RemoveReply(ctx, st.ReplyToID, id); err != nil {
			s.log.Warn().Err(err).Str("postId", st.ReplyToID).Msg("reply index removal failed")
		}
		if err := s.coord.DecrementReplyCount(ctx, st.ReplyToID); err != nil {
			s.log.Warn().Err(err).Str("postId", st.ReplyToID).Msg("reply count decrement failed")
		}
	}
	if st.QuoteOfID != "" {
		if err := s.coord.DecrementQuoteCount(ctx, st.QuoteOfID); err != nil {
			s.log.Warn().Err(err).Str("postId", st.QuoteOfID).Msg("quote count decrement failed")
		}
	}
	if st.RepostOfID != "" {
		if _, err := s.coord.RemoveRepost(ctx, st.RepostOfID, actorID); err != nil {
			s.log.Warn().Err(err).Str("postId", st.RepostOfID).Msg("repost edge release failed")
		}
	}

	if err := s.events.PublishDeletePost(ctx, id, st.AuthorID); err != nil {
		// Feed entries linger but page assembly drops tombstoned posts,
		// so reads stay correct until redelivery.
		s.log.Error().Err(err).Str("postId", id).Msg("delete fan-out enqueue failed")
	}
	if err := s.users.DecrementPostCount(ctx, st.AuthorID); err != nil {
		s.log.Warn().Err(err).Str("userId", st.AuthorID).Msg("post count decrement failed")
	}
	if s.indexer != nil {
		if err := s.indexer.RemovePost(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("postId", id).Msg("search deindex failed")
		}
	}
	return nil
}

func (s *postService) Takedown(ctx context.Context, id, adminID, reason string) error {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return err
	}
	if st.IsTakenDown {
		return nil
	}

	if err := s.coord.Takedown(ctx, id, adminID, reason); err != nil {
		return err
	}

	if err := s.events.PublishDeletePost(ctx, id, st.AuthorID); err != nil {
		s.log.Error().Err(err).Str("postId", id).Msg("takedown fan-out enqueue failed")
	}
	if s.indexer != nil {
		if err := s.indexer.RemovePost(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("postId", id).Msg("search deindex failed")
		}
	}
	return nil
}

func (s *postService) Like(ctx context.Context, id, userID string) (int, error) {
	count, added, err := s.coord.Like(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if !added {
		return count, nil
	}

	if err := s.users.RecordLike(ctx, userID, id); err != nil {
		s.log.Warn().Err(err).Str("userId", userID).Msg("liked index write failed")
	}

	st, err := s.coord.Get(ctx, id)
	if err == nil && st.AuthorID != userID && s.notifier != nil {
		if err := s.notifier.NotifyEngagement(ctx, "like", st.AuthorID, userID, id, preview(st.Content)); err != nil {
			s.log.Warn().Err(err).Str("postId", id).Msg("like notification failed")
		}
	}
	return count, nil
}

func (s *postService) Unlike(ctx context.Context, id, userID string) (int, error) {
	count, removed, err := s.coord.Unlike(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if removed {
		if err := s.users.ForgetLike(ctx, userID, id); err != nil {
			s.log.Warn().Err(err).Str("userId", userID).Msg("liked index removal failed")
		}
	}
	return count, nil
}

func (s *postService) Repost(ctx context.Context, id, userID string) (*View, error) {
	return s.Create(ctx, userID, CreateRequest{RepostOfID: id})
}

// Snapshots bulk-loads snapshots in input order, skipping missing and
// tombstoned posts.
func (s *postService) Snapshots(ctx context.Context, ids []string) ([]Snapshot, error) {
	if len(ids) == 0 {
		return []Snapshot{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = KeySnapshot(id)
	}
	raw, err := s.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("loading post snapshots: %w", err)
	}

	out := make([]Snapshot, 0, len(ids))
	for i := range ids {
		blob, ok := raw[keys[i]]
		if !ok {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(blob), &snap); err != nil {
			s.log.Warn().Err(err).Str("postId", ids[i]).Msg("skipping undecodable snapshot")
			continue
		}
		if snap.Gone() {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *postService) Authored(ctx context.Context, userID string, limit int, cursor string) (*Page, error) {
	return s.pageAuthored(ctx, userID, limit, cursor, func(snap Snapshot) bool { return true })
}

func (s *postService) AuthoredReplies(ctx context.Context, userID string, limit int, cursor string) (*Page, error) {
	return s.pageAuthored(ctx, userID, limit, cursor, func(snap Snapshot) bool { return snap.ReplyToID != "" })
}

func (s *postService) AuthoredMedia(ctx context.Context, userID string, limit int, cursor string) (*Page, error) {
	return s.pageAuthored(ctx, userID, limit, cursor, func(snap Snapshot) bool { return len(snap.MediaURLs) > 0 })
}

func (s *postService) Liked(ctx context.Context, ids []string, viewerID string) ([]View, error) {
	snaps, err := s.Snapshots(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(snaps))
	for _, snap := range snaps {
		v := View{Snapshot: snap}
		if viewerID != "" {
			liked := true
			v.HasLiked = &liked
		}
		views = append(views, v)
	}
	return views, nil
}

// pageAuthored walks the authored index newest-first from the cursor,
// joining snapshots in batches until the page fills. The cursor is the
// id of the last returned post.
func (s *postService) pageAuthored(ctx context.Context, userID string, limit int, cursor string, keep func(Snapshot) bool) (*Page, error) {
	ids, err := s.coord.ListAuthored(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := 0
	if cursor != "" {
		for i, id := range ids {
			if identity.Compare(id, cursor) < 0 {
				start = i
				break
			}
			start = len(ids)
		}
	}

	page := &Page{Posts: []View{}}
	for start < len(ids) && len(page.Posts) <= limit {
		end := start + joinBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		snaps, err := s.Snapshots(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, snap := range snaps {
			if !keep(snap) {
				continue
			}
			page.Posts = append(page.Posts, View{Snapshot: snap})
			if len(page.Posts) > limit {
				break
			}
		}
		start = end
	}

	if len(page.Posts) > limit {
		page.Posts = page.Posts[:limit]
		page.HasMore = true
	}
	if len(page.Posts) > 0 {
		page.NextCursor = page.Posts[len(page.Posts)-1].ID
	}

	for i := range page.Posts {
		s.joinReferences(ctx, &page.Posts[i])
	}
	return page, nil
}

// getLive loads post state, treating tombstones as not found.
func (s *postService) getLive(ctx context.Context, id string) (*State, error) {
	st, err := s.coord.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.IsDeleted || st.IsTakenDown {
		return nil, ErrPostNotFound
	}
	return st, nil
}

// resolveLeaf follows a repost reference to the original it points at.
// The stored reference is always the leaf, so one hop suffices.
func (s *postService) resolveLeaf(ctx context.Context, id string) (*State, error) {
	st, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.RepostOfID != "" {
		return s.getLive(ctx, st.RepostOfID)
	}
	return st, nil
}

func (s *postService) loadSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	raw, err := s.store.Get(ctx, KeySnapshot(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, &CorruptStateError{ID: id, Err: err}
	}
	return &snap, nil
}

// joinReferences attaches the referenced original to a repost or quote
// view. A tombstoned reference stays nil and renders as unavailable.
func (s *postService) joinReferences(ctx context.Context, view *View) {
	attach := func(id string) *Snapshot {
		snap, err := s.loadSnapshot(ctx, id)
		if err != nil || snap.Gone() {
			return nil
		}
		return snap
	}

	if view.RepostOfID != "" {
		view.RepostOf = attach(view.RepostOfID)
	}
	if view.QuoteOfID != "" {
		view.QuoteOf = attach(view.QuoteOfID)
	}
}

func (s *postService) viewerOverlay(ctx context.Context, view *View, viewerID string) {
	if viewerID == "" {
		return
	}
	st, err := s.coord.Get(ctx, view.ID)
	if err != nil {
		return
	}
	liked := containsID(st.Likes, viewerID)
	reposted := containsID(st.Reposts, viewerID)
	view.HasLiked = &liked
	view.HasReposted = &reposted
}

// notifyForCreate fires the reply/quote/repost/mention notifications a
// new post generates. All are best-effort.
func (s *postService) notifyForCreate(ctx context.Context, st *State, author *UserCard, repostTarget, replyParent, quoteTarget *State) {
	if s.notifier == nil {
		return
	}

	notify := func(kind, recipientID, postID, text string) {
		if recipientID == st.AuthorID {
			return
		}
		if err := s.notifier.NotifyEngagement(ctx, kind, recipientID, st.AuthorID, postID, preview(text)); err != nil {
			s.log.Warn().Err(err).Str("kind", kind).Str("recipient", recipientID).Msg("notification failed")
		}
	}

	if replyParent != nil {
		notify("reply", replyParent.AuthorID, st.ID, st.Content)
	}
	if quoteTarget != nil {
		notify("quote", quoteTarget.AuthorID, st.ID, st.Content)
	}
	if repostTarget != nil {
		notify("repost", repostTarget.AuthorID, repostTarget.ID, repostTarget.Content)
	}

	seen := map[string]bool{author.Handle: true}
	for _, match := range mentionRegex.FindAllStringSubmatch(strings.ToLower(st.Content), -1) {
		handle := match[1]
		if seen[handle] {
			continue
		}
		seen[handle] = true

		id, err := s.users.ResolveHandle(ctx, handle)
		if err != nil {
			continue
		}
		notify("mention", id, st.ID, st.Content)
	}
}

func validateCreate(req CreateRequest, maxLen int) error {
	refs := 0
	for _, ref := range []string{req.ReplyToID, req.QuoteOfID, req.RepostOfID} {
		if ref != "" {
			refs++
		}
	}
	if refs > 1 {
		return &ValidationError{Field: "post", Reason: "at most one of replyToId, quoteOfId, repostOfId"}
	}

	if req.RepostOfID != "" {
		if req.Content != "" {
			return ErrRepostWithContent
		}
		if len(req.MediaURLs) > 0 {
			return &ValidationError{Field: "mediaUrls", Reason: "repost cannot carry media"}
		}
		return nil
	}

	if req.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(req.Content) > maxLen {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("at most %d characters", maxLen)}
	}
	if len(req.MediaURLs) > maxMediaPerPost {
		return &ValidationError{Field: "mediaUrls", Reason: fmt.Sprintf("at most %d attachments", maxMediaPerPost)}
	}
	return nil
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLen {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLen])
}
