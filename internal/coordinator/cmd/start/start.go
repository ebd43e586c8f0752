// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package start

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innovationmech/lracoord/internal/coordinator/server"
	"github.com/innovationmech/lracoord/pkg/logger"
)

// NewStartCmd creates the start command for the LRA coordinator service.
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the LRA coordinator",
		Long:  "Start the LRA coordinator service: HTTP API, timeout scheduler and recovery scanner.",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := server.NewServer()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			startupErr := make(chan error, 1)
			var wg sync.WaitGroup

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := srv.Start(ctx); err != nil {
					startupErr <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-startupErr:
				logger.Logger.Error("Coordinator startup failed", zap.Error(err))
				return err
			case <-quit:
			}

			logger.Logger.Info("Shutting down LRA coordinator...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Logger.Error("Error during coordinator shutdown", zap.Error(err))
			}

			cancel()
			wg.Wait()

			logger.Logger.Info("Coordinator shut down successfully")
			return nil
		},
	}

	cobra.OnInitialize(initConfig)

	return cmd
}

// initConfig initializes logging before the command body runs.
func initConfig() {
	logger.InitLogger()
}
