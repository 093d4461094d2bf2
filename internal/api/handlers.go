package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/model"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type createPostRequest struct {
	Description string `json:"description"`
	Genre       string `json:"genre"`
	VideoURL    string `json:"videoUrl"`
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId"`
}

type voteRequest struct {
	Direction model.VoteDirection `json:"direction"`
}

type verifyRequest struct {
	CommentID string `json:"commentId"`
}

type reportRequest struct {
	Reason string `json:"reason"`
}

const minPasswordLength = 6

// actor возвращает ID пользователя из JWT или ErrUnauthorized.
func actor(c *fiber.Ctx) (string, error) {
	return auth.UserIDString(c.UserContext())
}

// parseBody разбирает JSON-тело. Пустое тело допустимо.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Password) < minPasswordLength {
		return s.fail(c, fmt.Errorf("%w: username is required and password must be at least %d characters", errBadRequest, minPasswordLength))
	}

	u, err := s.deps.Users.RegisterUser(c.UserContext(), req.Username, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return s.fail(c, err)
	}

	token, err := s.issueToken(u)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: u})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	u, err := s.deps.Users.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.fail(c, err)
	}

	token, err := s.issueToken(u)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(authResponse{Token: token, User: u})
}

func (s *Server) issueToken(u *model.User) (string, error) {
	id, err := strconv.ParseUint(u.ID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("user id %q is not numeric: %w", u.ID, err)
	}
	return auth.IssueToken(s.opts.JWTSecret, uint(id), u.Username)
}

func (s *Server) createPost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, err)
	}
	if strings.TrimSpace(req.VideoURL) == "" {
		return s.fail(c, fmt.Errorf("%w: videoUrl is required", errBadRequest))
	}

	p, err := s.deps.Posts.CreatePost(c.UserContext(), req.Description, req.Genre, req.VideoURL)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *Server) listPosts(c *fiber.Ctx) error {
	posts, err := s.deps.Posts.GetAllPosts(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(posts)
}

func (s *Server) getPost(c *fiber.Ctx) error {
	p, err := s.deps.Posts.GetPostById(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

func (s *Server) deleteOwnPost(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.deps.Moderation.DeleteOwnPost(c.UserContext(), c.Params("id"), actorID); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) createComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	created, err := s.deps.Comments.Create(c.UserContext(), c.Params("id"), req.ParentID, req.Content)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) listComments(c *fiber.Ctx) error {
	order, err := comment.ParseSortOrder(c.Query("sort"))
	if err != nil {
		return s.fail(c, err)
	}

	comments, err := s.deps.Comments.List(c.UserContext(), c.Params("id"), order)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(comments)
}

func (s *Server) vote(c *fiber.Ctx) error {
	var req voteRequest
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	v, err := s.deps.Comments.Vote(c.UserContext(), c.Params("id"), req.Direction)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(v)
}

func (s *Server) unvote(c *fiber.Ctx) error {
	if err := s.deps.Comments.Unvote(c.UserContext(), c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) karma(c *fiber.Ctx) error {
	userID := c.Params("id")
	karma, err := s.deps.Engine.GetKarma(c.UserContext(), userID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"userId": userID, "karma": karma})
}
