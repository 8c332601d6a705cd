package imports

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir   string
		storage  Storage
		received time.Time
		pdf      []byte
	)

	BeforeEach(func() {
		tmpDir = filepath.Join(GinkgoT().TempDir(), "invoices")
		received = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
		pdf = []byte("%PDF-1.4\n%âãÏÓ")
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create the directory", func() {
		Expect(tmpDir).To(BeADirectory())
	})

	Describe("Save", func() {
		var (
			filename  string
			data      []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "imp-1_facture.pdf"
			data = pdf
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, received, data)
		})

		It("should file the invoice under its reception month", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(savedPath).To(Equal("2025-01/imp-1_facture.pdf"))
			Expect(filepath.Join(tmpDir, "2025-01", "imp-1_facture.pdf")).To(BeAnExistingFile())
		})

		When("the name has no PDF extension", func() {
			BeforeEach(func() {
				filename = "imp-1_facture"
			})

			It("should add it", func() {
				Expect(savedPath).To(Equal("2025-01/imp-1_facture.pdf"))
			})
		})

		When("the bytes are not a PDF", func() {
			BeforeEach(func() {
				data = []byte("GIF89a")
			})

			It("should refuse them", func() {
				Expect(errors.Is(err, ErrNotPDF)).To(BeTrue())
				Expect(errors.Is(err, ErrUnsupportedContentType)).To(BeTrue())
				Expect(filepath.Join(tmpDir, "2025-01")).NotTo(BeADirectory())
			})
		})

		When("the name tries to leave the directory", func() {
			BeforeEach(func() {
				filename = "../../outside.pdf"
			})

			It("should stay inside it", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(filepath.Join(tmpDir, "2025-01", "outside.pdf")).To(BeAnExistingFile())
				Expect(filepath.Join(filepath.Dir(tmpDir), "outside.pdf")).NotTo(BeAnExistingFile())
			})
		})
	})

	Describe("Get", func() {
		When("the file exists", func() {
			var name string

			BeforeEach(func() {
				var err error
				name, err = storage.Save("facture.pdf", received, pdf)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return its content", func() {
				data, err := storage.Get(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal(pdf))
			})
		})

		When("the file does not exist", func() {
			It("should return an error", func() {
				_, err := storage.Get("2025-01/missing.pdf")
				Expect(err).To(HaveOccurred())
			})
		})

		When("a stored name points outside the directory", func() {
			It("should not read it", func() {
				_, err := storage.Get("../../../etc/hostname")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		var name string

		BeforeEach(func() {
			var err error
			name, err = storage.Save("facture.pdf", received, pdf)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should remove the file", func() {
			Expect(storage.Delete(name)).To(Succeed())
			Expect(filepath.Join(tmpDir, "2025-01", "facture.pdf")).NotTo(BeAnExistingFile())
		})

		It("should fail for unknown files", func() {
			Expect(storage.Delete("2025-01/missing.pdf")).NotTo(Succeed())
		})
	})
})
