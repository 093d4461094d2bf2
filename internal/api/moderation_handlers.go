package api

import (
	"github.com/gofiber/fiber/v2"
)

func (s *Server) moderationQueue(c *fiber.Ctx) error {
	if _, err := actor(c); err != nil {
		return s.fail(c, err)
	}

	posts, err := s.deps.Moderation.ListPending(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(posts)
}

func (s *Server) reportPost(c *fiber.Ctx) error {
	var req reportRequest
	if err := parseBody(c, &req); err != nil {
		return s.fail(c, err)
	}

	r, created, err := s.deps.Moderation.ReportPost(c.UserContext(), c.Params("id"), req.Reason)
	if err != nil {
		return s.fail(c, err)
	}
	if !created {
		return c.JSON(r)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (s *Server) listReports(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	reports, err := s.deps.Moderation.ListReports(c.UserContext(), actorID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(reports)
}

func (s *Server) dismissReport(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	r, err := s.deps.Moderation.DismissReport(c.UserContext(), c.Params("id"), actorID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(r)
}

func (s *Server) removePost(c *fiber.Ctx) error {
	actorID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	if err := s.deps.Moderation.RemovePost(c.UserContext(), c.Params("id"), actorID); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
