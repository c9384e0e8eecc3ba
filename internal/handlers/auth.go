package handlers

import (
	"errors"
	"net/http"
	"sync"

	"designpro/internal/access"
	"designpro/internal/accounts"
	"designpro/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validatorsOnce sync.Once

// registerFormValidators adds the name/login rules to gin's validator.
func registerFormValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("cyrillic_name", func(fl validator.FieldLevel) bool {
			return accounts.ValidFullName(fl.Field().String())
		})
		_ = v.RegisterValidation("latin_login", func(fl validator.FieldLevel) bool {
			return accounts.ValidUsername(fl.Field().String())
		})
	})
}

type registerForm struct {
	FullName        string `form:"full_name" binding:"required,max=200,cyrillic_name"`
	Username        string `form:"username" binding:"required,max=150,latin_login"`
	Email           string `form:"email" binding:"required,email"`
	Password        string `form:"password" binding:"required,min=8"`
	PasswordConfirm string `form:"password_confirm" binding:"required,eqfield=Password"`
	Agreement       string `form:"agreement"`
}

// поле формы -> сообщение при нарушении правила
var registerMessages = map[string]string{
	"FullName":        "ФИО должно содержать только кириллические буквы, пробелы и дефис",
	"Username":        "Логин должен содержать только латинские буквы и дефис",
	"Email":           "Введите корректный email",
	"Password":        "Пароль должен быть не короче 8 символов",
	"PasswordConfirm": "Пароли не совпадают",
}

var registerFields = map[string]string{
	"FullName":        "full_name",
	"Username":        "username",
	"Email":           "email",
	"Password":        "password",
	"PasswordConfirm": "password_confirm",
}

func bindingErrors(err error, form registerForm) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			key := registerFields[fe.StructField()]
			if _, seen := out[key]; seen || key == "" {
				continue
			}
			if fe.Tag() == "required" {
				out[key] = "Заполните поле"
				continue
			}
			out[key] = registerMessages[fe.StructField()]
		}
	} else {
		out["form"] = "Некорректные данные"
	}
	if form.Agreement == "" {
		out["agreement"] = "Необходимо согласие на обработку персональных данных"
	}
	return out
}

func (h *Handlers) ShowRegister(c *gin.Context) {
	if middleware.CurrentIdentity(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, middleware.HomeFor(c))
		return
	}
	h.render(c, http.StatusOK, "register.html", gin.H{"form": registerForm{}})
}

func (h *Handlers) Register(c *gin.Context) {
	if middleware.CurrentIdentity(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, middleware.HomeFor(c))
		return
	}

	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "register.html", gin.H{
			"form":   form,
			"errors": bindingErrors(err, form),
		})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), accounts.RegisterInput{
		FullName:        form.FullName,
		Username:        form.Username,
		Email:           form.Email,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
		Consent:         form.Agreement != "",
	})
	if fields := fieldErrors(err); fields != nil {
		h.render(c, http.StatusBadRequest, "register.html", gin.H{"form": form, "errors": fields})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	startSession(c, user.ID)
	redirectWith(c, "/", flashSuccess, "Успешная регистрация! Добро пожаловать, "+user.Username+"!")
}

func (h *Handlers) ShowLogin(c *gin.Context) {
	if middleware.CurrentIdentity(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, middleware.HomeFor(c))
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"error": "", "username": ""})
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (h *Handlers) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "login.html", gin.H{
			"error":    "Введите логин и пароль",
			"username": form.Username,
		})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), form.Username, form.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		middleware.Logger(c).Info("login failed", zap.String("username", form.Username))
		h.render(c, http.StatusBadRequest, "login.html", gin.H{
			"error":    "Неверный логин или пароль",
			"username": form.Username,
		})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	startSession(c, user.ID)

	home := middleware.ProfilePath
	if access.IdentityOf(user).IsStaff() {
		home = middleware.DashboardPath
	}
	redirectWith(c, home, flashSuccess, "С возвращением, "+user.Username+"!")
}

func (h *Handlers) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.AddFlash("Вы вышли из системы.", flashInfo)
	_ = sess.Save()
	c.Redirect(http.StatusFound, "/")
}

func startSession(c *gin.Context, userID uint) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Set(middleware.SessionUserID, userID)
	_ = sess.Save()
}
