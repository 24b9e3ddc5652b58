// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"

	"github.com/fluffyriot/bookshare/internal/middleware"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionCookie = "bookshare_session"

func (h *Handler) Router(sessionSecret string) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	r.Use(sessions.Sessions(sessionCookie, store))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.AuthMiddleware(h.App.Session))

	r.GET("/health", h.HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/login", h.LoginSubmitHandler)
	r.POST("/register", h.RegisterHandler)
	r.POST("/logout", h.LogoutHandler)

	api := r.Group("/api")
	{
		api.GET("/me", h.CurrentUserHandler)
		api.POST("/me", h.UpdateProfileHandler)

		api.GET("/feed", h.TimelineHandler)
		api.POST("/feed/more", h.TimelineMoreHandler)
		api.GET("/my-posts", h.MyPostsHandler)
		api.POST("/my-posts/more", h.MyPostsMoreHandler)
		api.POST("/refresh", h.RefreshHandler)
		api.GET("/stats", h.StatsHandler)

		api.POST("/posts", h.CreatePostHandler)
		api.GET("/posts/:id", h.PostDetailHandler)
		api.PATCH("/posts/:id", h.EditPostHandler)
		api.DELETE("/posts/:id", h.DeletePostHandler)
		api.POST("/posts/:id/like", h.ToggleLikeHandler)

		api.POST("/posts/:id/comments", h.AddCommentHandler)
		api.PATCH("/posts/:id/comments/:comment_id", h.EditCommentHandler)
		api.DELETE("/posts/:id/comments/:comment_id", h.DeleteCommentHandler)

		api.GET("/messages", h.MessagesHandler)
		api.POST("/messages", h.SendMessageHandler)
		api.DELETE("/messages", h.CloseChatHandler)
	}

	return r
}
