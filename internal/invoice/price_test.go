package invoice

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func decimalOf(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var _ = Describe("ExtractPrice", func() {
	var (
		src *Source
		rec Record
	)

	JustBeforeEach(func() {
		rec = ExtractPrice(src)
	})

	When("amounts use French formatting", func() {
		BeforeEach(func() {
			src = textSource("Prix unitaire : 1 020,00 € TVA FR (20.0%) : 204,00 € Frais de port : 49,90 € Montant global : 1 234,56 €")
		})

		It("parses the grand total with a comma decimal separator", func() {
			Expect(rec.Total).NotTo(BeNil())
			Expect(rec.Total.Equal(decimalOf("1234.56"))).To(BeTrue())
		})

		It("reads each amount from its own label", func() {
			Expect(rec.UnitPrice.Equal(decimalOf("1020"))).To(BeTrue())
			Expect(rec.VAT.Equal(decimalOf("204"))).To(BeTrue())
			Expect(rec.Shipping.Equal(decimalOf("49.9"))).To(BeTrue())
		})
	})

	When("only a total is labelled", func() {
		BeforeEach(func() {
			src = textSource("Total TTC : 89.99 EUR")
		})

		It("falls back to the first amount for the unit price", func() {
			Expect(rec.Total.Equal(decimalOf("89.99"))).To(BeTrue())
			Expect(rec.UnitPrice.Equal(decimalOf("89.99"))).To(BeTrue())
			Expect(rec.VAT).To(BeNil())
			Expect(rec.Shipping).To(BeNil())
		})
	})

	When("a quantity column sits next to an unlabelled price", func() {
		BeforeEach(func() {
			src = sourceOf(
				frag("Store banne", 500),
				frag("1", 500),
				frag("250,00 €", 500),
			)
		})

		It("does not read them as one grouped amount", func() {
			Expect(rec.UnitPrice.Equal(decimalOf("250"))).To(BeTrue(), "got %s", rec.UnitPrice)
		})
	})

	When("an unlabelled grouped price fills its own fragment", func() {
		BeforeEach(func() {
			src = sourceOf(
				frag("Store banne", 500),
				frag("1 250,00 €", 480),
			)
		})

		It("keeps the thousands group", func() {
			Expect(rec.UnitPrice.Equal(decimalOf("1250"))).To(BeTrue(), "got %s", rec.UnitPrice)
		})
	})

	When("no amount is printed", func() {
		BeforeEach(func() {
			src = textSource("Facture sans montant")
		})

		It("leaves every amount empty", func() {
			Expect(rec.UnitPrice).To(BeNil())
			Expect(rec.Total).To(BeNil())
		})
	})
})

var _ = Describe("parseAmount", func() {
	DescribeTable("formats",
		func(in, expected string) {
			d, err := parseAmount(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Equal(decimalOf(expected))).To(BeTrue(), "got %s", d)
		},
		Entry("space grouping", "1 234,56", "1234.56"),
		Entry("dot grouping", "1.234,56", "1234.56"),
		Entry("dot decimal", "12.50", "12.5"),
		Entry("no-break space", "12\u00a0345,00", "12345"),
		Entry("narrow no-break space", "2\u202f000,10", "2000.1"),
		Entry("plain", "7,05", "7.05"),
	)
})
