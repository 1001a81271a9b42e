package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kulinar/backend/internal/types"
)

const defaultPageSize = 10

// pageParams reads the page-number pagination query: `page` plus the
// overridable `limit` page size.
func pageParams(c *gin.Context) (page, limit int) {
	page, limit = 1, defaultPageSize
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}

// newPage wraps one page of results in the count/next/previous envelope
// with absolute page URLs.
func newPage(c *gin.Context, count int64, page, limit int, results any) types.Page {
	p := types.Page{Count: count, Results: results}
	if int64(page*limit) < count {
		p.Next = pageURL(c, page+1)
	}
	if page > 1 {
		p.Previous = pageURL(c, page-1)
	}
	return p
}

func pageURL(c *gin.Context, page int) *string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	s := fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, u.RequestURI())
	return &s
}

// boolQuery parses an optional boolean filter; nil means not supplied.
func boolQuery(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "1", "true", "True":
		v := true
		return &v
	case "0", "false", "False":
		v := false
		return &v
	}
	return nil
}

// intQuery parses an optional positive integer query parameter.
func intQuery(c *gin.Context, name string) *int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v >= 0 {
		return &v
	}
	return nil
}
