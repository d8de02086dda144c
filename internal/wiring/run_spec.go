package wiring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"turnstile/internal/baseline"
	"turnstile/internal/config"
	"turnstile/internal/logging"
	"turnstile/internal/policy"
)

var _ = ginkgo.Describe("RunChecks", func() {
	ginkgo.It("adopts, advances on improvement, and blocks regression", func() {
		root := ginkgo.GinkgoT().TempDir()
		env := &policy.Env{
			Root:        root,
			Cfg:         config.Default(),
			BaselineDir: filepath.Join(root, ".turnstile", "baselines"),
			Logger:      logging.Discard(),
		}
		writeHoles := func(n int) {
			err := os.WriteFile(filepath.Join(root, "demo.go"), []byte(holeSource(n)), 0o644)
			gomega.Expect(err).To(gomega.Succeed())
		}
		total := func() float64 {
			doc, err := baseline.Read[baseline.Totals](env.BaselineDir, "holes.json")
			gomega.Expect(err).To(gomega.Succeed())
			gomega.Expect(doc).NotTo(gomega.BeNil())
			return doc.Total
		}

		// No baseline yet: the first run adopts the current count.
		writeHoles(10)
		outcomes, err := RunChecks(context.Background(), env, []string{"holes"}, 1)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(outcomes).To(gomega.HaveLen(1))
		gomega.Expect(outcomes[0].Err).To(gomega.Succeed())
		gomega.Expect(outcomes[0].Report.Passed()).To(gomega.BeTrue())
		gomega.Expect(Combined(outcomes)).To(gomega.Succeed())
		gomega.Expect(total()).To(gomega.Equal(10.0))

		// Improvement passes and advances the baseline.
		writeHoles(3)
		outcomes, err = RunChecks(context.Background(), env, []string{"holes"}, 1)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(outcomes[0].Report.Passed()).To(gomega.BeTrue())
		gomega.Expect(total()).To(gomega.Equal(3.0))

		// Regression blocks and leaves the baseline untouched.
		writeHoles(7)
		outcomes, err = RunChecks(context.Background(), env, []string{"holes"}, 1)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(outcomes[0].Report.Passed()).To(gomega.BeFalse())
		gomega.Expect(Combined(outcomes)).To(gomega.HaveOccurred())
		gomega.Expect(total()).To(gomega.Equal(3.0))
	})
})

// holeSource builds a file with exactly n type holes.
func holeSource(n int) string {
	var b strings.Builder
	b.WriteString("package demo\n\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "var v%d any\n", i)
	}
	return b.String()
}
