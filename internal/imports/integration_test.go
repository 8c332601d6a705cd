package imports_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/savstores/sav-invoices/internal/imports"
	"github.com/savstores/sav-invoices/internal/invoice"
	"github.com/savstores/sav-invoices/internal/layout"
)

// stubLoader returns a fixed document whatever the bytes
type stubLoader struct {
	doc *layout.Document
}

func (s *stubLoader) Load(_ context.Context, _ []byte) (*layout.Document, error) {
	return s.doc, nil
}

func (s *stubLoader) Close() error {
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var _ = Describe("Integration", func() {
	var (
		db       imports.DB
		store    imports.Storage
		service  *imports.Service
		ghServer *ghttp.Server
		clock    fixedClock
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()
		clock = fixedClock{now: time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)}

		var err error
		db, err = imports.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = imports.NewLocalStorage(filepath.Join(tempDir, "invoices"))
		Expect(err).NotTo(HaveOccurred())

		loader := &stubLoader{doc: &layout.Document{Pages: []layout.Page{{
			Number: 1, Width: 595, Height: 842,
			Fragments: []layout.Fragment{
				{Text: "CASTORAMA", X: 40, Y: 800, Height: 10},
				{Text: "Client :", X: 40, Y: 700, Height: 10},
				{Text: "Marc LEROUX", X: 40, Y: 690, Height: 10},
				{Text: "Montant global : 320,00 €", X: 40, Y: 300, Height: 10},
			},
		}}}}
		engine := invoice.NewEngine(loader, invoice.WithTimeSource(clock))

		service = imports.NewService(db, engine, store)
		server := imports.NewServer(service, imports.BasicAuth{})
		ghServer = ghttp.NewServer()
		ghServer.RouteToHandler(http.MethodPost, "/api/imports", server.ServeHTTP)
		ghServer.RouteToHandler(http.MethodGet, "/api/imports", server.ServeHTTP)
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	It("should extract, store and list an uploaded invoice", func() {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "facture-casto.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("%PDF-1.4 integration"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/imports", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created imports.Import
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.Template).To(Equal("Castorama"))
		Expect(created.Fallback).To(BeFalse())
		Expect(created.Record.FirstName).To(Equal("Marc"))
		Expect(created.Record.LastName).To(Equal("LEROUX"))
		Expect(created.Record.Total.String()).To(Equal("320"))

		data, err := store.Get(created.Filename)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("%PDF-1.4 integration"))

		listResp, err := http.Get(ghServer.URL() + "/api/imports")
		Expect(err).NotTo(HaveOccurred())
		defer listResp.Body.Close()
		raw, err := io.ReadAll(listResp.Body)
		Expect(err).NotTo(HaveOccurred())

		var listed []imports.Import
		Expect(json.Unmarshal(raw, &listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0].ID).To(Equal(created.ID))
	})
})
