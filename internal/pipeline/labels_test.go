package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DecodeLabels", func() {
	It("reads the indexed object form inside a fenced reply", func() {
		reply := "Here you go:\n```json\n{\"items\":[{\"index\":1,\"category\":\"GROCERIES\"},{\"index\":0,\"category\":\"FOOD\"}]}\n```"
		labels, err := DecodeLabels(reply, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(labels).To(Equal([]string{"FOOD", "GROCERIES"}))
	})

	It("reads a bare array of labels", func() {
		labels, err := DecodeLabels(`["FOOD","HEALTH","RENT"]`, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(labels).To(Equal([]string{"FOOD", "HEALTH"}))
	})

	It("leaves skipped and out of range positions empty", func() {
		labels, err := DecodeLabels(`{"items":[{"index":2,"category":"RENT"},{"index":7,"category":"FOOD"}]}`, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(labels).To(Equal([]string{"", "", "RENT"}))
	})

	DescribeTable("rejecting malformed replies",
		func(reply string) {
			_, err := DecodeLabels(reply, 1)
			Expect(err).To(MatchError(ErrMalformedLabels))
		},
		Entry("prose only", "I cannot help with that"),
		Entry("broken JSON", `{"items":[{"index":0,`),
		Entry("negative index", `{"items":[{"index":-1,"category":"FOOD"}]}`),
		Entry("numeric category", `{"items":[{"index":0,"category":3}]}`),
		Entry("missing items", `{"labels":["FOOD"]}`),
		Entry("array of numbers", `[1,2]`),
	)
})

var _ = Describe("classification prompts", func() {
	It("lists every category and the descriptions", func() {
		system := ClassificationSystemPrompt()
		user := ClassificationUserPrompt([]string{"Shawarma MIXTO", `Say "hi"`})
		for _, name := range []string{"FOOD", "GROCERIES", "TRANSPORT", "ENTERTAINMENT", "HEALTH", "UTILITIES", "RENT", "OTHER"} {
			Expect(system).To(ContainSubstring(name))
		}
		Expect(user).To(ContainSubstring(`["Shawarma MIXTO","Say \"hi\""]`))
	})
})
