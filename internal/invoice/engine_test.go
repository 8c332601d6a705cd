package invoice

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/savstores/sav-invoices/internal/layout"
)

var _ = Describe("Engine", func() {
	var (
		loader *mockLoader
		engine *Engine
		opts   []Option
	)

	BeforeEach(func() {
		loader = &mockLoader{}
		opts = []Option{WithTimeSource(&mockTimeSource{now: testNow})}
	})

	JustBeforeEach(func() {
		engine = NewEngine(loader, opts...)
	})

	expectFallback := func(rec Record) {
		Expect(rec.LastName).To(Equal("Client"))
		Expect(rec.FirstName).To(Equal("Nouveau"))
		Expect(rec.Address).To(Equal("Adresse non détectée"))
		Expect(rec.ProductReference).To(MatchRegexp(`^REF-\d+$`))
		Expect(rec.ProductReference).To(Equal(fmt.Sprintf("REF-%d", testNow.UnixMilli())))
		Expect(rec.ProductModel).To(Equal("Store banne"))
		Expect(rec.Motor).To(Equal("Non détecté"))
		Expect(rec.WindSensor).NotTo(BeNil())
		Expect(*rec.WindSensor).To(BeFalse())
		Expect(*rec.PurchaseDate).To(Equal(testNow))
	}

	When("the document has no fragments", func() {
		BeforeEach(func() {
			loader.doc = &layout.Document{}
		})

		It("returns the fallback record", func() {
			expectFallback(engine.Extract(context.Background(), []byte("%PDF")))
		})

		It("reports the fallback", func() {
			a := engine.Analyze(context.Background(), []byte("%PDF"))
			Expect(a.Fallback).To(BeTrue())
			Expect(a.Template).To(Equal("generic"))
			Expect(a.Error).To(BeEmpty())
		})
	})

	When("the loader fails", func() {
		BeforeEach(func() {
			loader.err = errors.New("corrupt xref table")
		})

		It("returns the fallback record instead of an error", func() {
			a := engine.Analyze(context.Background(), []byte("garbage"))
			expectFallback(a.Record)
			Expect(a.Fallback).To(BeTrue())
			Expect(a.Error).To(ContainSubstring("corrupt xref table"))
		})
	})

	When("the invoice names a customer", func() {
		BeforeEach(func() {
			loader.doc = document(
				frag("Sold To:", 100),
				frag("Jean DUPONT", 90),
				frag("5 Rue X, 75001 Paris", 80),
				frag("Payment Method", 50),
				frag("Jean DUPONT", 40),
			)
		})

		It("returns the extracted record", func() {
			a := engine.Analyze(context.Background(), []byte("%PDF"))
			Expect(a.Fallback).To(BeFalse())
			Expect(a.Pages).To(Equal(1))
			Expect(a.Fragments).To(Equal(5))
			Expect(a.Record.FirstName).To(Equal("Jean"))
			Expect(a.Record.LastName).To(Equal("DUPONT"))
			Expect(a.Record.Address).To(ContainSubstring("75001 Paris"))
			Expect(*a.Record.WindSensor).To(BeFalse())
			Expect(*a.Record.PurchaseDate).To(Equal(testNow))
		})

		It("is idempotent", func() {
			first := engine.Extract(context.Background(), []byte("%PDF"))
			second := engine.Extract(context.Background(), []byte("%PDF"))
			Expect(second).To(Equal(first))
			Expect(loader.calls).To(Equal(2))
		})

		It("falls back when the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			a := engine.Analyze(ctx, []byte("%PDF"))
			Expect(a.Fallback).To(BeTrue())
			Expect(a.Error).To(ContainSubstring("canceled"))
		})

		When("the fragment cap is lower than the document", func() {
			BeforeEach(func() {
				opts = append(opts, WithMaxFragments(1))
			})

			It("only reads the first fragments", func() {
				a := engine.Analyze(context.Background(), []byte("%PDF"))
				Expect(a.Fragments).To(Equal(1))
			})
		})
	})

	When("the detected template is Castorama", func() {
		BeforeEach(func() {
			loader.doc = document(
				frag("CASTORAMA", 800),
				frag("Client :", 700),
				frag("Marc LEROUX", 690),
				frag("Montant global : 320,00 €", 300),
			)
		})

		It("reports the template name", func() {
			a := engine.Analyze(context.Background(), nil)
			Expect(a.Template).To(Equal("Castorama"))
			Expect(a.Record.Total.Equal(decimalOf("320"))).To(BeTrue())
		})
	})

	When("custom placeholders are configured", func() {
		BeforeEach(func() {
			loader.doc = &layout.Document{}
			p := DefaultPlaceholders()
			p.LastName = "Customer"
			p.FirstName = "New"
			p.ReferencePrefix = "AUTO-"
			opts = append(opts, WithPlaceholders(p))
		})

		It("uses them in the fallback record", func() {
			rec := engine.Extract(context.Background(), nil)
			Expect(rec.LastName).To(Equal("Customer"))
			Expect(rec.FirstName).To(Equal("New"))
			Expect(rec.ProductReference).To(HavePrefix("AUTO-"))
		})
	})

	Describe("AnalyzeDocument", func() {
		It("skips the loader", func() {
			a := engine.AnalyzeDocument(context.Background(), document(frag("Client :", 500), frag("Ana SILVA", 490)))
			Expect(a.Record.FirstName).To(Equal("Ana"))
			Expect(loader.calls).To(BeZero())
		})
	})
})

var _ = Describe("truncate", func() {
	It("keeps short strings", func() {
		Expect(truncate("abc", 10)).To(Equal("abc"))
	})

	It("never splits a rune", func() {
		Expect(truncate("aé", 2)).To(Equal("a"))
		Expect(truncate("aéb", 3)).To(Equal("aé"))
	})
})
