/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/cantstop/games/cantstop"
)

//go:embed assets/*
var assets embed.FS

func writeHomePage(cfg *Config, w http.ResponseWriter) {
	var body strings.Builder

	body.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	body.WriteString(getFavicon(cfg))
	body.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	body.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/cantstop/app.css">`, cfg.prefix))
	body.WriteString(`<title>Peak Pursuit</title></head><body class="page home">`)
	body.WriteString(`<h1>Peak Pursuit</h1>`)
	body.WriteString(`<p>Roll four dice, climb three columns, and know when to stop.</p>`)
	body.WriteString(fmt.Sprintf(`<p><a class="button" href="%s/cantstop">New game</a></p>`, cfg.prefix))
	body.WriteString(fmt.Sprintf(`<form method="get" action="%s/join">`, cfg.prefix))
	body.WriteString(`<input name="code" maxlength="5" placeholder="Game code" autocomplete="off">`)
	body.WriteString(`<button type="submit">Join</button></form>`)
	body.WriteString(`</body></html>`)

	_, _ = w.Write([]byte(body.String()))
}

func serveHomePage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		writeHomePage(cfg, w)
	}
}

// serveJoin sends the home page form on to the game it names.
func serveJoin(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
		if !cantstop.ValidGameCode(code) {
			http.Redirect(w, r, cfg.prefix+"/", http.StatusSeeOther)

			return
		}

		http.Redirect(w, r, cfg.prefix+path+"/"+code, http.StatusSeeOther)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveAssets(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, cfg.prefix), "/")

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)

			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		switch strings.ToLower(filepath.Ext(fname)) {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		case ".html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case ".svg":
			w.Header().Set("Content-Type", "image/svg+xml")
		}

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: ` + cfg.prefix + `/cantstop/

User-agent: GPTBot
Disallow: /

User-agent: CCBot
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
