// Package handlers contains the full set of handler functions and routes
// supported by the viewer.
package handlers

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"

	"github.com/qrcledger/node/business/web/mid"
	"github.com/qrcledger/node/foundation/web"
	"go.uber.org/zap"
)

//go:embed assets/index.html
var assets embed.FS

// UIMux constructs an http.Handler with all application routes defined. The
// page streams the block events published by the node at nodeURL.
func UIMux(shutdown chan os.Signal, log *zap.SugaredLogger, nodeURL string) (*web.App, error) {
	app := web.NewApp(
		shutdown,
		mid.Logger(log),
		mid.Errors(log),
		mid.Panics(),
		mid.Cors("*"),
	)

	// Register the index page for the website.
	ig, err := newIndex(nodeURL)
	if err != nil {
		return nil, fmt.Errorf("loading index template: %w", err)
	}
	app.Handle(http.MethodGet, "", "/", ig.handler)

	return app, nil
}

// =============================================================================

// index holds the rendered index page.
type index struct {
	page []byte
}

func newIndex(nodeURL string) (index, error) {
	u, err := url.Parse(nodeURL)
	if err != nil {
		return index{}, fmt.Errorf("parse node url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/v1/events"
	u.RawQuery = url.Values{"filter": {"viewer:"}}.Encode()

	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return index{}, err
	}

	data := struct {
		Node   string
		Events string
	}{
		Node:   nodeURL,
		Events: u.String(),
	}

	var b bytes.Buffer
	if err := tmpl.Execute(&b, data); err != nil {
		return index{}, err
	}

	return index{page: b.Bytes()}, nil
}

func (ig index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	web.SetStatusCode(ctx, http.StatusOK)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(ig.page); err != nil {
		return fmt.Errorf("write index page: %w", err)
	}

	return nil
}
