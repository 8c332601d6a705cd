package imports

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/savstores/sav-invoices/internal/invoice"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveImport", func() {
		var (
			imp *Import
			err error
		)

		BeforeEach(func() {
			total := decimal.RequireFromString("1234.56")
			windSensor := true
			purchase := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
			imp = &Import{
				ID:          "test-id",
				Filename:    "test-id_facture.pdf",
				ContentType: "application/pdf",
				Template:    "ICI-Store",
				Record: invoice.Record{
					LastName:     "DUPONT",
					FirstName:    "Jean",
					Total:        &total,
					WindSensor:   &windSensor,
					PurchaseDate: &purchase,
				},
				CreatedAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveImport(imp)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should round-trip the record", func() {
			saved, getErr := db.GetImport("test-id")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved.Template).To(Equal("ICI-Store"))
			Expect(saved.Record.LastName).To(Equal("DUPONT"))
			Expect(saved.Record.Total.Equal(decimal.RequireFromString("1234.56"))).To(BeTrue())
			Expect(*saved.Record.WindSensor).To(BeTrue())
			Expect(saved.Record.PurchaseDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))).To(BeTrue())
		})

		When("the database is reopened", func() {
			It("should keep the import", func() {
				Expect(db.Close()).To(Succeed())
				var openErr error
				db, openErr = NewBoltDB(dbPath)
				Expect(openErr).NotTo(HaveOccurred())

				imps, listErr := db.ListImports()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(imps).To(HaveLen(1))
			})
		})
	})

	Describe("GetImport", func() {
		When("the import does not exist", func() {
			It("should return ErrNotFound", func() {
				_, err := db.GetImport("missing")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("ListImports", func() {
		When("the bucket is empty", func() {
			It("should return an empty slice", func() {
				imps, err := db.ListImports()
				Expect(err).NotTo(HaveOccurred())
				Expect(imps).NotTo(BeNil())
				Expect(imps).To(BeEmpty())
			})
		})

		When("imports exist", func() {
			BeforeEach(func() {
				Expect(db.SaveImport(&Import{ID: "a"})).To(Succeed())
				Expect(db.SaveImport(&Import{ID: "b"})).To(Succeed())
			})

			It("should return all of them", func() {
				imps, err := db.ListImports()
				Expect(err).NotTo(HaveOccurred())
				Expect(imps).To(HaveLen(2))
			})
		})
	})

	Describe("DeleteImport", func() {
		BeforeEach(func() {
			Expect(db.SaveImport(&Import{ID: "a"})).To(Succeed())
		})

		It("should remove the import", func() {
			Expect(db.DeleteImport("a")).To(Succeed())
			_, err := db.GetImport("a")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})
})
