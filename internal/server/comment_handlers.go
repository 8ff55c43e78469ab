package server

import (
	"lcnetwork/internal/models"
	"lcnetwork/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Description parent_comment_id makes the comment a reply
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{content=string,parent_comment_id=int,media_url=string,media_type=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content         string           `json:"content"`
		ParentCommentID *uint            `json:"parent_comment_id"`
		MediaURL        string           `json:"media_url"`
		MediaType       models.MediaType `json:"media_type"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.comments.Create(c.UserContext(), service.CreateCommentInput{
		UserID:          currentUserID(c),
		PostID:          postID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
		MediaURL:        req.MediaURL,
		MediaType:       req.MediaType,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/posts/:id/comments
// @Summary List comments
// @Description Top-level comments of a post with their reply counts
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Paginated[models.Comment]
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.comments.List(c.UserContext(), postID, currentUserID(c), s.page(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(comments)
}

// GetReplies handles GET /api/posts/comments/:id/replies
func (s *Server) GetReplies(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	replies, err := s.comments.Replies(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"replies": replies})
}

// UpdateComment handles PUT /api/posts/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.comments.Update(c.UserContext(), service.UpdateCommentInput{
		UserID:    currentUserID(c),
		CommentID: id,
		Content:   req.Content,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/posts/comments/:id
// @Summary Delete comment
// @Description The comment author or the post owner may delete
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.comments.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// LikeComment handles POST /api/posts/comments/:id/like
func (s *Server) LikeComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.comments.ToggleLike(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(res)
}

// UploadCommentMedia handles POST /api/posts/comments/upload-media
func (s *Server) UploadCommentMedia(c *fiber.Ctx) error {
	return s.uploadMedia(c, service.FolderCommentImages, service.FolderCommentVideos)
}
