package server

import (
	"lcnetwork/internal/models"
	"lcnetwork/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Caption    string               `json:"caption"`
	Visibility models.Visibility    `json:"visibility"`
	Media      []service.MediaInput `json:"media"`
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Store a pending post and queue it for moderation
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.posts.Create(c.UserContext(), service.CreatePostInput{
		UserID:     currentUserID(c),
		Caption:    req.Caption,
		Visibility: req.Visibility,
		Media:      req.Media,
		Meta:       requestMeta(c),
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post submitted for review",
		"post":    post,
	})
}

// GetFeed handles GET /api/posts
// @Summary Feed
// @Description Published posts, newest first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} models.Paginated[models.Post]
// @Router /posts [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	posts, err := s.posts.Feed(c.UserContext(), currentUserID(c), s.page(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(posts)
}

// GetMyPosts handles GET /api/posts/my-posts
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.posts.Mine(c.UserContext(), currentUserID(c), s.page(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.posts.Get(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit post
// @Description Any edit sends the post back to pending review
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Caption    *string               `json:"caption"`
		Visibility *models.Visibility    `json:"visibility"`
		Media      *[]service.MediaInput `json:"media"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.posts.Update(c.UserContext(), service.UpdatePostInput{
		UserID:     currentUserID(c),
		PostID:     id,
		Caption:    req.Caption,
		Visibility: req.Visibility,
		Media:      req.Media,
		Meta:       requestMeta(c),
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Post updated and resubmitted for review",
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.posts.Delete(c.UserContext(), id, currentUserID(c), requestMeta(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// UploadPostMedia handles POST /api/posts/upload-media
// @Summary Upload post media
// @Description Store an image (JPEG + WebP) or a video; the returned URL goes into a post's media list
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Media file"
// @Param type formData string false "image or video"
// @Success 201 {object} service.StoredMedia
// @Router /posts/upload-media [post]
func (s *Server) UploadPostMedia(c *fiber.Ctx) error {
	return s.uploadMedia(c, service.FolderPostImages, service.FolderPostVideos)
}

func (s *Server) uploadMedia(c *fiber.Ctx, imageFolder, videoFolder string) error {
	name, content, err := s.formFile(c, "file")
	if err != nil {
		return nil
	}

	mediaType := models.MediaType(c.FormValue("type", string(models.MediaTypeImage)))
	folder := imageFolder
	if mediaType == models.MediaTypeVideo {
		folder = videoFolder
	}

	stored, err := s.media.Upload(c.UserContext(), service.UploadInput{
		Folder:    folder,
		MediaType: mediaType,
		Filename:  name,
		Content:   content,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.posts.ToggleLike(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(res)
}

// SharePost handles POST /api/posts/:id/share
func (s *Server) SharePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Caption string `json:"caption"`
	}
	// An empty body shares without a caption.
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	share, err := s.posts.Share(c.UserContext(), id, currentUserID(c), req.Caption)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(share)
}
