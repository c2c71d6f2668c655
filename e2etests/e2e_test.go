package e2etests

import (
	"os"
	"testing"
)

func TestE2E(t *testing.T) {
	bkCmd := os.Getenv("BK_CMD")
	if bkCmd == "" {
		t.Skip("BK_CMD environment variable not set; skipping e2e tests")
	}

	runner := &Runner{BkCmd: bkCmd}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			sandbox, err := runner.SetupSandbox()
			if err != nil {
				t.Fatalf("failed to setup sandbox: %v", err)
			}
			defer runner.TeardownSandbox(sandbox)

			if err := tc.Fn(runner, sandbox); err != nil {
				t.Fatalf("test case failed: %v", err)
			}
		})
	}
}
