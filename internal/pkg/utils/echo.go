package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	msterrors "github.com/rumsystem/mstnode/internal/pkg/errors"
)

const sep = ","

type (
	CustomContext struct {
		echo.Context
	}
	CustomValidator struct {
		validator *validator.Validate
		trans     *ut.Translator
	}
	ValidationWithTransError struct {
		errs  validator.ValidationErrors
		trans ut.Translator
	}
)

func NewEcho(debug bool) *echo.Echo {
	e := echo.New()

	e.Debug = debug
	if debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}
	e.Logger.SetHeader("${time_rfc3339_nano} ${level} ${prefix} ${short_file} ${line}")

	e.HideBanner = true

	e.Validator = NewCustomValidator()
	e.HTTPErrorHandler = customHTTPErrorHandler

	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	// must be registered before any other middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &CustomContext{Context: c}
			return next(cc)
		}
	})

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339_nano} method=${method} uri=${uri} status=${status} latency=${latency_human} error={${error}}\n",
	}))

	e.Use(middleware.Recover())

	return e
}

func (vet ValidationWithTransError) Error() string {
	buff := bytes.NewBufferString("")
	for _, v := range vet.errs.Translate(vet.trans) {
		buff.WriteString(v)
		buff.WriteString(sep)
	}

	return strings.TrimSuffix(buff.String(), sep)
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return msterrors.NewBadRequestError(err.Error())
		}
		verr := ValidationWithTransError{
			errs:  errs,
			trans: *cv.trans,
		}
		return msterrors.NewBadRequestError(verr.Error())
	}
	return nil
}

func (c *CustomContext) BindAndValidate(params interface{}) error {
	if err := c.Bind(params); err != nil {
		return err
	}
	if err := c.Validate(params); err != nil {
		return err
	}

	return nil
}

type ErrorResponse echo.HTTPError

func NewCustomValidator() *CustomValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		// struct Filed Name first letter lowercase if not specified`json:xx`
		if name == "-" || name == "" {
			return LowerFirstLetter(fld.Name)
		}
		return name
	})
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
	return &CustomValidator{validator: validate, trans: &trans}
}

func customHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok {
		if he.Internal != nil {
			if herr, ok := he.Internal.(*echo.HTTPError); ok {
				he = herr
			}
		}
	} else {
		var msg string
		if err != nil {
			msg = err.Error()
		} else {
			msg = http.StatusText(http.StatusInternalServerError)
		}

		he = &echo.HTTPError{
			Code:    http.StatusInternalServerError,
			Message: msg,
		}
	}

	he.Message = getErrorMessage(he, c)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, he)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func getErrorMessage(he *echo.HTTPError, c echo.Context) string {
	if m, ok := he.Message.(error); ok {
		return m.Error()
	} else if m, ok := he.Message.(string); ok {
		return m
	}

	msg, err := json.Marshal(he.Message)
	if err != nil {
		c.Logger().Error(err)
		return http.StatusText(he.Code)
	}
	return string(msg)
}
