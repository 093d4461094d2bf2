package api

import (
	"github.com/gofiber/fiber/v2"
)

func (s *Server) communityVerify(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req verifyRequest
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	p, err := s.deps.Engine.CommunityVerify(c.UserContext(), c.Params("id"), req.CommentID, actorID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

// moderatorConfirm: commentId можно не передавать, тогда подтверждается выбор владельца.
func (s *Server) moderatorConfirm(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req verifyRequest
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	p, err := s.deps.Engine.ModeratorConfirm(c.UserContext(), c.Params("id"), req.CommentID, actorID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

func (s *Server) moderatorReopen(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	p, err := s.deps.Engine.ModeratorReopen(c.UserContext(), c.Params("id"), actorID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

func (s *Server) artistConfirm(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	cm, err := s.deps.Engine.ArtistConfirm(c.UserContext(), c.Params("id"), actorID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(cm)
}

func (s *Server) artistDeny(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	cm, err := s.deps.Engine.ArtistDeny(c.UserContext(), c.Params("id"), actorID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(cm)
}
