package pipeline

import (
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseLineItems", func() {
	DescribeTable("single lines",
		func(line, wantDesc, wantAmount string) {
			items := ParseLineItems(line, "CAD")
			if wantDesc == "" {
				Expect(items).To(BeEmpty())
				return
			}
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal(wantDesc))
			Expect(items[0].Amount.Equal(decimal.RequireFromString(wantAmount))).To(BeTrue(), items[0].Amount.String())
			Expect(items[0].Currency).To(Equal("CAD"))
		},
		Entry("quantity prefix", "4 Shawarma MIXTO 27.00", "Shawarma MIXTO", "27.00"),
		Entry("comma decimal", "Coffee 3,50", "Coffee", "3.50"),
		Entry("currency symbol", "Lunch special $12.99", "Lunch special", "12.99"),
		Entry("euro symbol with space", "Croissant € 2.10", "Croissant", "2.10"),
		Entry("collapses inner whitespace", "Milk   2%    4.99", "Milk 2%", "4.99"),
		Entry("non-breaking space", "Pan\u00a0integral 2.50", "Pan integral", "2.50"),
		Entry("surrounding whitespace", "   Tea 1.25   ", "Tea", "1.25"),
		Entry("thousands with comma grouping", "TOTAL 1,234.56", "TOTAL", "1234.56"),
		Entry("thousands with period grouping", "Leche 1.234,56", "Leche", "1234.56"),
		Entry("millions", "Televisor 1.299.900,00", "Televisor", "1299900.00"),
		Entry("trailing tax flag", "4 Shawarma MIXTO 27.00 A", "Shawarma MIXTO", "27.00"),
		Entry("trailing two letter flag", "Soap 4.25 TX", "Soap", "4.25"),
		Entry("trailing asterisk", "Bananas 1.99 *", "Bananas", "1.99"),
		Entry("quantity with x", "2 x Beer 5.00", "Beer", "5.00"),
		Entry("quantity glued to x", "3x Donut 4.50", "Donut", "4.50"),
		Entry("description starting with x", "1 Xbox controller 79.99", "Xbox controller", "79.99"),
		Entry("no letters in description", "12 34 5.00", "", ""),
		Entry("zero amount", "Refund 0.00", "", ""),
		Entry("one decimal digit", "Item 12.5", "", ""),
		Entry("no amount", "Gracias por su compra", "", ""),
		Entry("amount only", "27.00", "", ""),
		Entry("blank line", "", "", ""),
	)

	It("keeps source order across lines and skips noise", func() {
		text := "SUPERMERCADO EL SOL\nNIT 900.123\r\n2 Leche entera 5.80\nfecha 2024-01-02\nPan tajado 3,20\n"
		items := ParseLineItems(text, "COP")
		Expect(items).To(HaveLen(2))
		Expect(items[0].Description).To(Equal("Leche entera"))
		Expect(*items[0].Quantity).To(Equal(2))
		Expect(items[1].Description).To(Equal("Pan tajado"))
		Expect(items[1].Quantity).To(BeNil())
		Expect(items[1].Currency).To(Equal("COP"))
	})

	It("keeps the quantity written with an x", func() {
		items := ParseLineItems("2 x Beer 5.00", "CAD")
		Expect(items).To(HaveLen(1))
		Expect(*items[0].Quantity).To(Equal(2))
	})

	It("returns nothing for empty text", func() {
		Expect(ParseLineItems("", "CAD")).To(BeEmpty())
	})

	It("normalizes the currency code", func() {
		Expect(ParseLineItems("Tea 1.25", " usd ")[0].Currency).To(Equal("USD"))
		Expect(ParseLineItems("Tea 1.25", "")[0].Currency).To(Equal(DefaultCurrency))
		Expect(ParseLineItems("Tea 1.25", "dollars")[0].Currency).To(Equal(DefaultCurrency))
	})

	It("never yields a non-positive amount or empty description", func() {
		text := "A 0.00\nB 0,01\n 1.00\nC -2.00\nDD 999999.99"
		for _, item := range ParseLineItems(text, "CAD") {
			Expect(item.Amount.IsPositive()).To(BeTrue())
			Expect(item.Description).NotTo(BeEmpty())
		}
	})
})
