package core

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
)

const siteTitle = "3 Day Workout Plan"

const supportMessage = "Error saving info. Please contact customer service at customerservice@admin.com"

type loginForm struct {
	Email    string `form:"email_address" json:"email_address" binding:"required,email"`
	Password string `form:"user_pass" json:"user_pass" binding:"required,min=12"`
}

type registerForm struct {
	FirstName string `form:"first_name" json:"first_name" binding:"required"`
	LastName  string `form:"last_name" json:"last_name" binding:"required"`
	Email     string `form:"email_address" json:"email_address" binding:"required,email"`
	Password  string `form:"user_pass" json:"user_pass" binding:"required,min=12"`
	Confirm   string `form:"confirm_user_pass" json:"confirm_user_pass" binding:"required,eqfield=Password"`
}

type updatePasswordForm struct {
	Current string `form:"current_pass" json:"current_pass" binding:"required,min=12"`
	New     string `form:"new_pass" json:"new_pass" binding:"required,min=12"`
	Confirm string `form:"confirm_user_pass" json:"confirm_user_pass" binding:"required,eqfield=New"`
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, store *sessions.CookieStore, authService AuthService, content SiteContent, status *StatusCollector) *gin.Engine {
	r := gin.Default()
	_ = r.SetTrustedProxies(cfg.TrustedProxies)

	// Global middleware: origin/CORS -> session -> CSRF
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, store))
	r.Use(CSRFMiddleware(cfg, store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/healthz/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, status.Collect(c.Request.Context()))
	})

	loginPage := func(c *gin.Context) {
		respondPage(c, http.StatusOK, sessionFor(cfg, c), siteTitle, nil)
	}
	loginSubmit := func(c *gin.Context) {
		sess := sessionFor(cfg, c)
		ctx := c.Request.Context()
		var form loginForm
		if err := c.ShouldBind(&form); err != nil {
			authService.RecordFailedAttempt(ctx, c.ClientIP())
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", bindErrorMessage(err))
			return
		}
		if _, err := authService.Login(ctx, sess, form.Email, form.Password, c.ClientIP()); err != nil {
			respondAuthError(c, err)
			return
		}
		redirectWithFlash(c, sess, "/home", "Logged In")
	}
	r.GET("/", loginPage)
	r.GET("/login", loginPage)
	r.POST("/", loginSubmit)
	r.POST("/login", loginSubmit)

	r.GET("/register", func(c *gin.Context) {
		respondPage(c, http.StatusOK, sessionFor(cfg, c), siteTitle, nil)
	})
	r.POST("/register", func(c *gin.Context) {
		sess := sessionFor(cfg, c)
		var form registerForm
		if err := c.ShouldBind(&form); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", bindErrorMessage(err))
			return
		}
		rec, err := authService.Register(c.Request.Context(), sess, RegisterInput{
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Email:     form.Email,
			Password:  form.Password,
		})
		if err != nil {
			respondAuthError(c, err)
			return
		}
		redirectWithFlash(c, sess, "/home", fmt.Sprintf("Account Created for %s %s", rec.FirstName, rec.LastName))
	})

	updatepass := r.Group("/updatepass", RequireLogin(cfg, "Home Page"))
	{
		updatepass.GET("", func(c *gin.Context) {
			respondPage(c, http.StatusOK, sessionFor(cfg, c), siteTitle, nil)
		})
		updatepass.POST("", func(c *gin.Context) {
			sess := sessionFor(cfg, c)
			var form updatePasswordForm
			if err := c.ShouldBind(&form); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", bindErrorMessage(err))
				return
			}
			if err := authService.ChangePassword(c.Request.Context(), sess, form.Current, form.New); err != nil {
				respondAuthError(c, err)
				return
			}
			redirectWithFlash(c, sess, "/login", "Password Updated.")
		})
	}

	logout := func(c *gin.Context) {
		sess := sessionFor(cfg, c)
		wasLoggedIn, err := authService.Logout(sess)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
			return
		}
		if !wasLoggedIn {
			redirectWithFlash(c, sess, "/login", "You were not logged in")
			return
		}
		redirectWithFlash(c, sess, "/login", "You are successfully logged out!")
	}
	r.GET("/logout", logout)
	r.POST("/logout", logout)

	r.GET("/home", RequireLogin(cfg, "Home Page"), func(c *gin.Context) {
		respondPage(c, http.StatusOK, sessionFor(cfg, c), "Home", gin.H{
			"workouts": content.Workouts,
			"datetime": content.DisplayedAt,
		})
	})
	for i, w := range content.Workouts {
		day := i + 1
		workout := w
		r.GET(fmt.Sprintf("/day%d", day), RequireLogin(cfg, fmt.Sprintf("Day %d Workout Page", day)), func(c *gin.Context) {
			respondPage(c, http.StatusOK, sessionFor(cfg, c), fmt.Sprintf("Day %d", day), gin.H{
				"workout":  workout,
				"datetime": content.DisplayedAt,
			})
		})
	}

	return r
}

// respondAuthError maps auth core errors onto status codes and user-facing messages.
func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid Username/Password. Please Try Again")
	case errors.Is(err, ErrEmailTaken):
		respondError(c, http.StatusConflict, "EMAIL_TAKEN", "User Name Already Taken. Please Enter a Different Email.")
	case errors.Is(err, ErrCommonPassword):
		respondError(c, http.StatusBadRequest, "COMMON_PASSWORD", "Password contains an unsecure word. Please choose a different password.")
	case errors.Is(err, ErrWeakPassword):
		respondError(c, http.StatusBadRequest, "WEAK_PASSWORD", "Password Invalid. Must be least 12 characters in length, and include at least 1 uppercase character, 1 lowercase character, 1 number and 1 special character, and be no longer than 72 bytes.")
	case errors.Is(err, ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrCurrentPasswordIncorrect):
		respondError(c, http.StatusBadRequest, "CURRENT_PASSWORD_INCORRECT", "Current password incorrect. Please re-enter.")
	case errors.Is(err, ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Please log in to access this page")
	case errors.Is(err, ErrPolicyUnavailable), errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrIDConflict):
		respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", supportMessage)
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "unexpected error")
	}
}

// bindErrorMessage turns the first binding failure into a form message.
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid form"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "email":
		return "Enter a Valid Email"
	case "eqfield":
		return "Passwords Must Match"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is required", fe.Field())
	}
}
