package controller

import (
	"errors"
	"net/http"
	"strconv"

	dto "github.com/nettodev/realms-auth/app/dto/http"
	"github.com/nettodev/realms-auth/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type RealmController struct {
	realms service.RealmService
}

func NewRealmController(realms service.RealmService) *RealmController {
	return &RealmController{realms: realms}
}

func (c *RealmController) ListRealms(ctx echo.Context) error {
	var id uint64
	if raw := ctx.QueryParam("id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid id filter"})
		}
		id = parsed
	}

	realms, err := c.realms.List(ctx.Request().Context(), id, ctx.QueryParam("name"))
	if err != nil {
		logrus.WithError(err).Error("List realms failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, realms)
}

func (c *RealmController) GetRealm(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("realmID"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid realm id"})
	}

	realm, err := c.realms.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRealmNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "realm not found"})
		}
		logrus.WithError(err).WithField("realm_id", id).Error("Get realm failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, realm)
}
