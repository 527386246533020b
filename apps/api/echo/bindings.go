package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
)

// bindPage reads the limit/offset query params. Missing or invalid values fall back to the defaults.
func bindPage(ctx echo.Context) core.Page {
	var page core.Page
	_ = echo.QueryParamsBinder(ctx).
		Int("limit", &page.Limit).
		Int("offset", &page.Offset).
		BindErrors()
	page.Clean()
	return page
}

// bindQuery binds the query params into dst, then the body when the request has one.
// Some routes take their input in the query string, others as JSON.
func bindQuery(ctx echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, dst); err != nil {
		return errors.Wrap(err, "binding query params")
	}
	if ctx.Request().ContentLength > 0 {
		if err := (&echo.DefaultBinder{}).BindBody(ctx, dst); err != nil {
			return errors.Wrap(err, "binding body")
		}
	}
	return nil
}

// pageResponse is the envelope of a paged listing.
type pageResponse struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Count  int         `json:"count"`
}

func newPageResponse(items interface{}, count int, page core.Page) pageResponse {
	return pageResponse{Items: items, Limit: page.Limit, Offset: page.Offset, Count: count}
}

type messageResponse struct {
	Message string `json:"message"`
}
