package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"ai-finance-manager/pkg/config"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("OpenAIService", func() {
	var (
		server  *httptest.Server
		reply   string
		status  int
		request map[string]any
	)

	BeforeEach(func() {
		status = http.StatusOK
		reply = `{"items":[{"index":0,"category":"FOOD"},{"index":1,"category":"TRANSPORT"}]}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(json.NewDecoder(r.Body).Decode(&request)).To(Succeed())
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{"message": map[string]any{"content": reply}}},
			})
		}))
		DeferCleanup(server.Close)
	})

	labels := func(descriptions ...string) ([]string, error) {
		svc := NewOpenAIService(&config.OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1/", Model: "gpt-4o-mini"}, server.Client(), zap.NewNop())
		return svc.Labels(context.Background(), descriptions)
	}

	It("returns one label per description", func() {
		got, err := labels("Shawarma", "Uber")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]string{"FOOD", "TRANSPORT"}))
		Expect(request["model"]).To(Equal("gpt-4o-mini"))
		Expect(request["response_format"]).To(Equal(map[string]any{"type": "json_object"}))
	})

	It("fails on a non-2xx status", func() {
		status = http.StatusTooManyRequests
		_, err := labels("Shawarma")
		Expect(err).To(MatchError(ContainSubstring("openai status 429")))
	})

	It("fails on a reply that is not label JSON", func() {
		reply = "Sorry, I can't do that."
		_, err := labels("Shawarma")
		Expect(err).To(HaveOccurred())
	})
})
