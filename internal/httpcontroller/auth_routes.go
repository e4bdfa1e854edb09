package httpcontroller

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

type loginView struct {
	Email    string
	Redirect string
	Error    string
}

func (ctl *Controller) loginPage(c echo.Context) error {
	if _, _, err := ctl.authSvc.Identify(c); err == nil {
		return c.Redirect(http.StatusSeeOther, auth.SafeRedirect(c.QueryParam("redirect")))
	}
	view := loginView{Redirect: auth.SafeRedirect(c.QueryParam("redirect"))}
	return ctl.render(c, http.StatusOK, "login", "login", "Log in", view)
}

func (ctl *Controller) login(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	redirect := auth.SafeRedirect(c.FormValue("redirect"))

	user, err := ctl.authSvc.Login(c, email, password)
	if err != nil {
		view := loginView{Email: email, Redirect: redirect, Error: "Invalid email or password."}
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrRateLimited) {
			status = http.StatusTooManyRequests
			view.Error = "Too many login attempts. Wait a minute and try again."
		}
		return ctl.render(c, status, "login", "login", "Log in", view)
	}

	sess := ctl.sessions.Load(c)
	sess.SetUser(user)
	ctl.log.Info("user logged in", logger.Uint("user_id", user.ID), logger.String("ip", c.RealIP()))
	return ctl.redirect(c, redirect, FlashSuccess, "Welcome, "+user.DisplayName()+".")
}

func (ctl *Controller) logout(c echo.Context) error {
	user := auth.CurrentUser(c)
	ctl.authSvc.Logout(c, user)
	if err := ctl.sessions.Clear(c); err != nil {
		ctl.log.Warn("failed to clear session", logger.Error(err))
	}
	ctl.log.Info("user logged out", logger.Uint("user_id", user.ID))
	return c.Redirect(http.StatusSeeOther, "/login")
}
