// Package respond builds response plans (status, headers, body source) and
// renders their wire bytes, per spec.md §4.4. Bodies are a tagged variant —
// none, inline bytes, a file stream, or a directory-listing generator — so
// the write path switches on BodySource.Kind rather than using subtype
// polymorphism, per spec.md §9.
package respond

import (
	"fmt"
	"html/template"
	"os"
	"strconv"
	"strings"

	"github.com/albertbausili/dropgate/internal/httpdate"
	"github.com/albertbausili/dropgate/internal/resolve"
)

// BodyKind tags which variant of body a Plan carries.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyBytes
	BodyFile
	BodyDirListing
)

// BodySource is the tagged body variant a Plan carries.
type BodySource struct {
	Kind BodyKind

	Bytes []byte // BodyBytes

	File       *os.File // BodyFile
	FileLength int64    // BodyFile

	DirHTML []byte // BodyDirListing (pre-rendered; generated eagerly since listings are small)
}

// Plan is the immutable result of building a response: status, ordered
// headers, and a body source. Header order is preserved on the wire.
type Plan struct {
	Status int
	Reason string
	Header [][2]string // ordered; rendered in this order after the status line
	Body   BodySource
}

// MIMETypes resolves a file extension to a content type. spec.md treats
// MIME lookup as an external collaborator; this interface is the seam.
type MIMETypes interface {
	TypeByExtension(ext string) string
}

func addHeader(h [][2]string, name, value string) [][2]string {
	return append(h, [2]string{name, value})
}

func baseHeaders(status int, extra ...[2]string) [][2]string {
	h := [][2]string{
		{"Server", "dropgate"},
		{"Date", string(httpdate.Now())},
	}
	h = append(h, extra...)
	h = addHeader(h, "Connection", "close")
	return h
}

// File builds the 200 OK plan for a GET/HEAD request against a resolved
// file. headOnly omits the body per spec.md §4.4.
func File(mime MIMETypes, res resolve.Result, ext string, headOnly bool) (Plan, error) {
	f, err := os.Open(res.AbsPath)
	if err != nil {
		return Plan{}, fmt.Errorf("open %s: %w", res.AbsPath, err)
	}
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := baseHeaders(200,
		[2]string{"Content-Type", contentType},
		[2]string{"Content-Length", strconv.FormatInt(res.Size, 10)},
		[2]string{"Last-Modified", res.Mtime.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")},
	)
	body := BodySource{Kind: BodyNone}
	if !headOnly {
		body = BodySource{Kind: BodyFile, File: f, FileLength: res.Size}
	} else {
		_ = f.Close()
	}
	return Plan{Status: 200, Reason: "OK", Header: h, Body: body}, nil
}

// Directory builds the 200 OK plan for a GET/HEAD request against a
// resolved directory, generating breadcrumbs + entry table (+ upload form
// when enabled), per spec.md §4.4 and §6.
func Directory(reqPath string, res resolve.Result, uploadEnabled, headOnly bool) (Plan, error) {
	htmlBody, err := renderDirectory(reqPath, res, uploadEnabled)
	if err != nil {
		return Plan{}, err
	}
	h := baseHeaders(200,
		[2]string{"Content-Type", "text/html; charset=utf-8"},
		[2]string{"Content-Length", strconv.Itoa(len(htmlBody))},
	)
	body := BodySource{Kind: BodyNone}
	if !headOnly {
		body = BodySource{Kind: BodyDirListing, DirHTML: htmlBody}
	}
	return Plan{Status: 200, Reason: "OK", Header: h, Body: body}, nil
}

// Index builds the 200 OK plan for serving an index file in place of a
// directory listing (config.IndexFile, spec.md §7 supplement).
func Index(mime MIMETypes, res resolve.Result, headOnly bool) (Plan, error) {
	return File(mime, res, ".html", headOnly)
}

// Redirect builds a 303 See Other plan pointing Location at target, used
// after a successful upload (spec.md §4.5 step 4) and for the optional
// directory trailing-slash normalization (spec.md §7 supplement).
func Redirect(status int, target string) Plan {
	h := baseHeaders(status,
		[2]string{"Location", target},
		[2]string{"Content-Length", "0"},
	)
	return Plan{Status: status, Reason: statusText(status), Header: h, Body: BodySource{Kind: BodyNone}}
}

// Error builds a short HTML error page for the given status.
func Error(status int, extraHeaders ...[2]string) Plan {
	msg := statusText(status)
	body := []byte("<!doctype html><html><head><title>" + msg + "</title></head>" +
		"<body><h1>" + strconv.Itoa(status) + " " + msg + "</h1></body></html>")
	h := baseHeaders(status,
		append([][2]string{
			{"Content-Type", "text/html; charset=utf-8"},
			{"Content-Length", strconv.Itoa(len(body))},
		}, extraHeaders...)...,
	)
	return Plan{Status: status, Reason: msg, Header: h, Body: BodySource{Kind: BodyBytes, Bytes: body}}
}

// MethodNotAllowed builds the 405 plan with an Allow header, per spec.md §4.4.
func MethodNotAllowed() Plan {
	return Error(405, [2]string{"Allow", "GET, HEAD"})
}

var dirTemplate = template.Must(template.New("dir").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Index of {{.Path}}</title></head>
<body>
<h1>Index of {{.Path}}</h1>
<p>{{range .Breadcrumbs}}<a href="{{.Href}}">{{.Name}}</a>/ {{end}}</p>
<table>
<tr><th>Name</th><th>Size</th><th>Modified</th></tr>
{{range .Entries}}<tr><td><a href="{{.Href}}">{{.Name}}</a></td><td>{{.Size}}</td><td>{{.Mtime}}</td></tr>
{{end}}</table>
{{if .UploadEnabled}}
<hr>
<form method="POST" enctype="multipart/form-data" action="{{.Path}}">
<input type="file" name="fileupload">
<input type="submit" value="Upload">
</form>
{{end}}
</body></html>
`))

type breadcrumb struct {
	Name string
	Href string
}

type dirRow struct {
	Name  string
	Href  string
	Size  string
	Mtime string
}

type dirView struct {
	Path          string
	Breadcrumbs   []breadcrumb
	Entries       []dirRow
	UploadEnabled bool
}

func renderDirectory(reqPath string, res resolve.Result, uploadEnabled bool) ([]byte, error) {
	view := dirView{
		Path:          reqPath,
		Breadcrumbs:   breadcrumbsFor(reqPath),
		UploadEnabled: uploadEnabled,
	}
	for _, e := range res.Entries {
		name := e.Name
		href := template.URLQueryEscaper(name)
		if e.IsDir {
			name += "/"
			href += "/"
		}
		size := ""
		if !e.IsDir {
			size = strconv.FormatInt(e.Size, 10)
		}
		view.Entries = append(view.Entries, dirRow{
			Name:  name,
			Href:  href,
			Size:  size,
			Mtime: e.Mtime.UTC().Format("2006-01-02 15:04:05"),
		})
	}

	var buf strings.Builder
	if err := dirTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func breadcrumbsFor(reqPath string) []breadcrumb {
	segs := strings.Split(strings.Trim(reqPath, "/"), "/")
	crumbs := []breadcrumb{{Name: "", Href: "/"}}
	running := ""
	for _, s := range segs {
		if s == "" {
			continue
		}
		running += "/" + s
		crumbs = append(crumbs, breadcrumb{Name: s, Href: running + "/"})
	}
	return crumbs
}

func statusText(code int) string {
	switch code {
	case 100:
		return "Continue"
	case 200:
		return "OK"
	case 303:
		return "See Other"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}

// StatusText exposes statusText for callers outside the package (e.g. the
// session FSM's logging).
func StatusText(code int) string { return statusText(code) }
