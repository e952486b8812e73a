package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/sidenav/internal/coerce"
	"github.com/jonwraymond/sidenav/render"
	"github.com/jonwraymond/sidenav/reqctx"
)

// sidebar renders the fragment for the page described by the query:
//
//	url=/docs/start        current page (relative to site.base_url)
//	lang=fr                locale override
//	content=12,13          viewed content ids
//	type=page              viewed content types
//	term.category=3,4      taxonomy terms
func (s *Server) sidebar(c *gin.Context) {
	out, err := s.orch.Render(c.Request.Context(), s.resolver(c))
	if err != nil {
		if !errors.Is(err, render.ErrNoOutput) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if out.ProfileID != "" {
			c.Header(HeaderProfile, out.ProfileID)
		}
		c.Status(http.StatusNoContent)
		return
	}
	c.Header(HeaderProfile, out.ProfileID)
	c.Header(HeaderCache, string(out.Cache))
	if out.IsDynamic {
		c.Header("Cache-Control", "private, no-store")
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out.HTML))
}

func (s *Server) explain(c *gin.Context) {
	res := s.resolver(c)
	exp, err := s.selector.Explain(c.Request.Context(), res)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	rc := res.Resolve(c.Request.Context())
	exp.Context = &rc
	c.JSON(http.StatusOK, exp)
}

func (s *Server) resolver(c *gin.Context) *reqctx.Resolver {
	opts := []reqctx.Option{
		reqctx.WithRequest(c.Request),
		reqctx.WithDefaultLocale(s.site.DefaultLocale),
		reqctx.WithSupportedLocales(s.site.SupportedLocales...),
		reqctx.WithLocation(s.loc),
		reqctx.WithClock(s.now),
		reqctx.WithLogger(s.logger),
		reqctx.WithContentSource(queryContent(c.Request.URL.Query())),
	}
	if u := c.Query("url"); u != "" {
		if s.site.BaseURL != "" {
			u = reqctx.NormalizeURL(u, s.site.BaseURL)
		}
		opts = append(opts, reqctx.WithURL(u))
	}
	return reqctx.New(opts...)
}

func queryContent(q url.Values) reqctx.ContentSource {
	return reqctx.ContentSourceFunc(func(context.Context) (reqctx.Content, error) {
		content := reqctx.Content{
			IDs:   ints(q["content"]),
			Types: coerce.Strings(strings.Join(q["type"], ",")),
			Terms: map[string][]int{},
		}
		for key, vals := range q {
			if tax, ok := strings.CutPrefix(key, "term."); ok && tax != "" {
				content.Terms[tax] = ints(vals)
			}
		}
		return content, nil
	})
}

func ints(vals []string) []int {
	var out []int
	for _, n := range coerce.Ints(strings.Join(vals, ",")) {
		out = append(out, int(n))
	}
	return out
}
