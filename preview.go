package pubfront

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pubfront/views"
)

const sessionName = "preview_session"

func (a *App) handlePreview(c echo.Context) error {
	return a.renderPreview(c, http.StatusOK, false)
}

func (a *App) handlePreviewLogin(c echo.Context) error {
	if a.Config.PreviewSecret == "" {
		return echo.ErrNotFound
	}
	ip := c.RealIP()
	if !a.previewLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many attempts. Try again later.")
	}
	secret := c.FormValue("secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(a.Config.PreviewSecret)) != 1 {
		a.previewLimiter.Record(ip)
		return a.renderPreview(c, http.StatusUnauthorized, true)
	}
	if err := setPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func handlePreviewLogout(c echo.Context) error {
	if err := clearPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) renderPreview(c echo.Context, code int, showError bool) error {
	return RenderStatus(c, code, a.Views.Preview(views.PreviewData{
		Page:      a.page(c, views.PageMeta{Title: "Preview"}),
		Enabled:   a.Config.PreviewSecret != "",
		ShowError: showError,
	}))
}

// requirePreview guards routes that only previewers may see.
func requirePreview(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsPreview(c) {
			return c.Redirect(http.StatusSeeOther, "/preview/")
		}
		return next(c)
	}
}

// IsPreview reports whether the current session has entered preview mode.
func IsPreview(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	on, ok := sess.Values["preview"].(bool)
	return ok && on
}

func setPreviewSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["preview"] = true
	return sess.Save(c.Request(), c.Response())
}

func clearPreviewSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}
