package api

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"codeflow-api/app"
	"codeflow-api/board"
	"codeflow-api/domain"
	"codeflow-api/session"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc *app.Service, sessions *session.Manager, logger *log.Logger) {
	drag := board.NewController()

	e.GET("/healthz", healthz())

	g := e.Group("/api")
	g.POST("/login", login(svc))
	g.POST("/register", register(svc))
	g.POST("/logout", logout(svc, sessions))
	g.GET("/session", getSession(svc))
	g.PUT("/settings", putSettings(svc, sessions))

	g.GET("/board", getBoard(svc, sessions, logger))
	g.GET("/backlog", getBacklog(svc, sessions))
	g.GET("/activity", getActivity(svc, sessions))

	g.GET("/projects", getProjects(svc, sessions))
	g.POST("/projects", postProject(svc, sessions))
	g.PUT("/projects/active", putActiveProject(svc, sessions))

	g.POST("/tasks", postTask(svc, sessions))
	g.PATCH("/tasks/:id", patchTask(svc, sessions))
	g.DELETE("/tasks/:id", deleteTask(svc, sessions))
	g.POST("/tasks/:id/move", moveTask(svc, sessions))

	g.POST("/drag/start", dragStart(drag, sessions))
	g.POST("/drag/drop", dragDrop(drag, svc, sessions))
	g.POST("/drag/cancel", dragCancel(drag, sessions))

	g.POST("/reset", postReset(svc, sessions))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	return sonic.ConfigStd.NewDecoder(lr).Decode(out)
}

// serviceError maps service failures onto responses: validation problems are
// the caller's to fix, everything else is a 500.
func serviceError(c echo.Context, err error) error {
	if app.IsValidation(err) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}

func login(svc *app.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		user, token, err := svc.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(http.StatusOK, authResponse{Token: token, User: userView{Email: user.Email, Name: user.Name}})
	}
}

func register(svc *app.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		user, token, err := svc.Register(c.Request().Context(), req.Name, req.Email, req.Password)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(http.StatusCreated, authResponse{Token: token, User: userView{Email: user.Email, Name: user.Name}})
	}
}

func logout(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c, sessions); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := svc.Logout(c.Request().Context()); err != nil {
			return serviceError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// getSession restores the current-user context from the persisted
// credential. Invalid or expired state reads as logged out, not an error.
func getSession(svc *app.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := svc.Restore(c.Request().Context())
		if !ok {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, userView{Email: user.Email, Name: user.Name})
	}
}

func putSettings(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := currentUser(c, sessions)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req settingsRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		user, err := svc.UpdateSettings(c.Request().Context(), claims.Subject, req.Name)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(http.StatusOK, userView{Email: user.Email, Name: user.Name})
	}
}

func getBoard(svc *app.Service, sessions *session.Manager, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newBoardRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := currentUser(c, sessions)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		filter := board.Filter{
			Search:   c.QueryParam("search"),
			Priority: domain.Priority(c.QueryParam("priority")),
		}
		metrics.SetFiltersProvided(filter.Search != "", filter.Priority != "")
		if filter.Priority != "" && !filter.Priority.Valid() {
			metrics.SetErrorStage("invalid_priority")
			err = c.String(http.StatusBadRequest, "invalid priority filter")
			return err
		}

		renderStart := time.Now()
		columns := svc.Board(ctx, filter)
		metrics.ObserveRender(time.Since(renderStart))

		cards := 0
		for _, column := range columns {
			cards += column.Count
		}
		metrics.SetCardsReturned(cards)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, columns)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getBacklog(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c, sessions); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, svc.Backlog(c.Request().Context()))
	}
}

func getActivity(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c, sessions); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, svc.Feed(c.Request().Context()))
	}
}

func getProjects(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c, sessions); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		projects, active := svc.Projects(c.Request().Context())
		if projects == nil {
			projects = []domain.Project{}
		}
		return c.JSON(http.StatusOK, projectsResponse{Projects: projects, Active: active})
	}
}

func postProject(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := currentUser(c, sessions)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req projectRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		project, err := svc.CreateProject(c.Request().Context(), claims.Name, req.Name)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(http.StatusCreated, project)
	}
}

func putActiveProject(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c, sessions); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req activeProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := svc.SwitchProject(c.Request().Context(), req.ID); err != nil {
			return serviceError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postTask(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := currentUser(c, sessions)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req taskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := svc.CreateTask(c.Request().Context(), claims.Name, app.TaskFields{
			Title:    req.Title,
			Desc:     req.Desc,
			Priority: req.Priority,
			Status:   req.Status,
			Tags:     req.Tags,
			Assignee: req.Assignee,
			Due:      req.Due,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func patchTask(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := currentUser(c, sessions)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req taskPatchRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		patch := domain.TaskPatch{
			Title:    req.Title,
			Desc:     req.Desc,
			Priority: req.Priority,
			Status:   req.Status,
			Assignee: req.Assignee,
			Due:      req.Due,
		}
		if req.Tags != nil {
			tags := domain.ParseTags(*req.Tags)
			patch.Tags = &tags
		}
		if err := svc.UpdateTask(c.Request().Context(), claims.Name, c.Param("id"), patch); err != nil {
			return serviceError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteTask(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := currentUser(c, sessions)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := svc.DeleteTask(c.Request().Context(), claims.Name, c.Param("id")); err != nil {
			return serviceError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func moveTask(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := currentUser(c, sessions)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req moveRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := svc.MoveTask(c.Request().Context(), claims.Name, c.Param("id"), req.Status); err != nil {
			return serviceError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func dragStart(drag *board.Controller, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c, sessions); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req dragStartRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.TaskID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "taskId is required"})
		}
		drag.Begin(req.TaskID)
		return c.NoContent(http.StatusNoContent)
	}
}

func dragDrop(drag *board.Controller, svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := currentUser(c, sessions)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req dragDropRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := drag.Drop(c.Request().Context(), svc, claims.Name, req.Status); err != nil {
			return serviceError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func dragCancel(drag *board.Controller, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c, sessions); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		drag.Cancel()
		return c.NoContent(http.StatusNoContent)
	}
}

// postReset wipes and reseeds the board. The confirm flag stands in for the
// UI confirmation dialog; without it nothing is touched.
func postReset(svc *app.Service, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := currentUser(c, sessions); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if c.QueryParam("confirm") != "true" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "confirmation required"})
		}
		if err := svc.ResetAll(c.Request().Context()); err != nil {
			return serviceError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
