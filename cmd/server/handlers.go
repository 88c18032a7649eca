package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/machinequote/internal/document"
	"github.com/Simplici0/machinequote/internal/imagestore"
	"github.com/Simplici0/machinequote/internal/pricing"
	"github.com/Simplici0/machinequote/internal/quote"
)

const maxUploadBytes = 10 << 20

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
	Warnings       []string
}

type optionView struct {
	ID          int
	Description string
	Price       string
	UploadKey   string
	UploadPath  string
	Selected    bool
	HasImage    bool
}

type groupView struct {
	Category string
	Options  []optionView
}

type quoteViewData struct {
	baseViewData
	Title        string
	Machines     []string
	Machine      string
	MachinePath  string
	CustomerName string
	Discount     pricing.RawInputs

	HasMachineImage bool
	StandardOptions []string
	Groups          []groupView

	BasePrice     string
	DiscountMode  string
	DiscountTotal string
	Total         string
	DownloadReady bool
}

func (s *server) handleQuoteForm(w http.ResponseWriter, r *http.Request) {
	machine := r.URL.Query().Get("machine")
	if machine == "" {
		machine = s.catalog.Names()[0]
	}

	data := quoteViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
		},
		CustomerName: r.URL.Query().Get("customer_name"),
	}

	sess, err := s.newSession(machine)
	if err != nil {
		data.ErrorMessage = err.Error()
		s.renderTemplate(w, statusFor(err), "quote.html", s.viewData(data, machine, nil))
		return
	}
	sess.CustomerName = data.CustomerName

	s.renderTemplate(w, http.StatusOK, "quote.html", s.viewData(data, machine, sess))
}

func (s *server) handleQuoteSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form, err := parseQuoteForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := quoteViewData{CustomerName: form.CustomerName, Discount: form.Discount}

	sess, err := s.newSession(form.Machine)
	if err != nil {
		data.ErrorMessage = err.Error()
		s.renderTemplate(w, statusFor(err), "quote.html", s.viewData(data, form.Machine, nil))
		return
	}
	sess.CustomerName = form.CustomerName

	inputs, inputErr := pricing.ParseInputs(form.Discount)
	data.Warnings = warningsOf(inputErr)
	sess.ApplyDiscount(pricing.Resolve(inputs))

	for _, id := range form.Addons {
		if err := sess.Toggle(id, true); err != nil {
			data.Warnings = append(data.Warnings, fmt.Sprintf("option %d is not offered for %s; ignored", id, form.Machine))
		}
	}

	if form.Action == actionGenerate {
		report, err := s.renderer.RenderFile(s.outputPath, document.InputFromSession(sess))
		if err != nil {
			s.log.Error().Err(err).Str("machine", form.Machine).Msg("failed to generate quote")
			data.ErrorMessage = "Could not generate the quote document."
			s.renderTemplate(w, http.StatusInternalServerError, "quote.html", s.viewData(data, form.Machine, sess))
			return
		}

		for _, img := range report.Degraded() {
			data.Warnings = append(data.Warnings, fmt.Sprintf("Image for %s was %s.", img.Subject, img.Status))
		}
		s.log.Info().
			Str("machine", form.Machine).
			Str("total", sess.Total().String()).
			Int("pages", report.Pages).
			Int("degraded_images", len(report.Degraded())).
			Msg("quote generated")

		data.SuccessMessage = "Quote generated successfully!"
		data.DownloadReady = true
	}

	s.renderTemplate(w, http.StatusOK, "quote.html", s.viewData(data, form.Machine, sess))
}

func (s *server) handleQuoteDownload(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "no quote has been generated yet", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to open quote", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "failed to open quote", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": s.downloadAs}))
	http.ServeContent(w, r, s.downloadAs, info.ModTime(), f)
}

func (s *server) handleOptionImageUpload(w http.ResponseWriter, r *http.Request) {
	code := pathName(chi.URLParam(r, "code"))
	s.handleUpload(w, r, code, func(f io.Reader) (string, error) {
		return s.images.SaveOption(code, f)
	})
}

func (s *server) handleMachineImageUpload(w http.ResponseWriter, r *http.Request) {
	name := pathName(chi.URLParam(r, "name"))
	s.handleUpload(w, r, name, func(f io.Reader) (string, error) {
		return s.images.SaveMachine(name, f)
	})
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request, key string, save func(io.Reader) (string, error)) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	machine := r.FormValue("machine")

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Redirect(w, r, formRedirect(machine, "error", "Choose an image to upload."), http.StatusSeeOther)
		return
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".jpg", ".jpeg", ".png":
	default:
		http.Redirect(w, r, formRedirect(machine, "error", "Only JPG and PNG images are accepted."), http.StatusSeeOther)
		return
	}

	path, err := save(file)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("image upload failed")
		msg := fmt.Sprintf("Could not save image for %s.", key)
		if errors.Is(err, imagestore.ErrInvalidName) {
			msg = fmt.Sprintf("%q cannot be used as an image name.", key)
		}
		http.Redirect(w, r, formRedirect(machine, "error", msg), http.StatusSeeOther)
		return
	}

	s.log.Info().Str("key", key).Str("path", path).Msg("image saved")
	http.Redirect(w, r, formRedirect(machine, "success", fmt.Sprintf("Image saved for %s", key)), http.StatusSeeOther)
}

func (s *server) handleOptionImage(w http.ResponseWriter, r *http.Request) {
	path, ok := s.images.OptionImage(pathName(chi.URLParam(r, "code")))
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *server) handleMachineImage(w http.ResponseWriter, r *http.Request) {
	path, ok := s.images.MachineImage(pathName(chi.URLParam(r, "name")))
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"machines": s.catalog.Len(),
	})
}

var errUnknownMachine = errors.New("unknown machine")

func (s *server) newSession(machine string) (*quote.Session, error) {
	m, ok := s.catalog.Machine(machine)
	if !ok {
		return nil, fmt.Errorf("%w %q", errUnknownMachine, machine)
	}
	sess, err := quote.NewSession(m)
	if err != nil {
		s.log.Error().Err(err).Str("machine", machine).Msg("machine catalog entry is invalid")
		return nil, err
	}
	return sess, nil
}

func statusFor(err error) int {
	var vErr *quote.ValidationError
	switch {
	case errors.Is(err, errUnknownMachine):
		return http.StatusNotFound
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) viewData(data quoteViewData, machine string, sess *quote.Session) quoteViewData {
	data.Title = s.title
	data.Machines = s.catalog.Names()
	data.Machine = machine
	data.MachinePath = url.PathEscape(machine)
	_, data.HasMachineImage = s.images.MachineImage(machine)

	if sess == nil {
		return data
	}

	data.StandardOptions = sess.StandardOptions()
	for _, g := range sess.Groups() {
		gv := groupView{Category: string(g.Category)}
		for i, o := range g.Options {
			key := quote.UploadKey(g, i)
			_, hasImage := s.images.OptionImage(key)
			gv.Options = append(gv.Options, optionView{
				ID:          o.ID,
				Description: o.Description,
				Price:       document.Money(o.Price),
				UploadKey:   key,
				UploadPath:  url.PathEscape(key),
				Selected:    sess.IsSelected(o.ID),
				HasImage:    hasImage,
			})
		}
		data.Groups = append(data.Groups, gv)
	}

	discount, amount := sess.Discount()
	data.BasePrice = document.Money(sess.BasePrice())
	data.DiscountMode = discount.Mode.String()
	data.DiscountTotal = document.Money(amount)
	data.Total = document.Money(sess.Total())
	return data
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	templates, err := template.ParseFiles(
		filepath.Join(s.templateDir, "layout.html"),
		filepath.Join(s.templateDir, page),
	)
	if err != nil {
		s.log.Error().Err(err).Str("page", page).Msg("failed to parse template")
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.log.Error().Err(err).Str("page", page).Msg("failed to render template")
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
