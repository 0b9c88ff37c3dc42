package application

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/weedrice/whiteboard-cli/internal/adapters/gateway"
	"github.com/weedrice/whiteboard-cli/internal/domain"
)

// BoardService is the thin typed wrapper over the board and post endpoints.
type BoardService struct {
	gw *gateway.Client
}

func NewBoardService(gw *gateway.Client) *BoardService {
	return &BoardService{gw: gw}
}

func (s *BoardService) ListBoards(ctx context.Context) ([]domain.Board, error) {
	resp, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/boards",
	}, gateway.Options{})
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	var boards []domain.Board
	if err := resp.Decode(&boards); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (s *BoardService) ListPosts(ctx context.Context, boardID int64, page, size int) (domain.Page[domain.Post], error) {
	if size <= 0 {
		size = defaultPageSize
	}

	resp, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/boards/%d/posts", boardID),
		Query: url.Values{
			"page": {strconv.Itoa(page)},
			"size": {strconv.Itoa(size)},
		},
	}, gateway.Options{})
	if err != nil {
		return domain.Page[domain.Post]{}, fmt.Errorf("list posts: %w", err)
	}

	var posts domain.Page[domain.Post]
	if err := resp.Decode(&posts); err != nil {
		return domain.Page[domain.Post]{}, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *BoardService) GetPost(ctx context.Context, postID int64) (domain.Post, error) {
	resp, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/posts/%d", postID),
	}, gateway.Options{})
	if err != nil {
		return domain.Post{}, fmt.Errorf("get post: %w", err)
	}

	var post domain.Post
	if err := resp.Decode(&post); err != nil {
		return domain.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func (s *BoardService) CreatePost(ctx context.Context, boardID int64, title, content string) (domain.Post, error) {
	resp, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/boards/%d/posts", boardID),
		Body:   map[string]string{"title": title, "content": content},
	}, gateway.Options{})
	if err != nil {
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}

	var post domain.Post
	if err := resp.Decode(&post); err != nil {
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}
