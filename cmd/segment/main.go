/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command segment runs the bus's Segment role: a strict 1:1 relay
// between one north connection and one south stream (spec.md §4.6.3).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nabbar/cloudbus/bus/marshal/segment"
	"github.com/nabbar/cloudbus/internal/bootstrap"
)

func main() {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Run a cloudbus segment node",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = os.Setenv("CONFIG_PATH", cfgFile)

			n, err := bootstrap.Build("segment", segment.New(), cfgFile)
			if err != nil {
				return err
			}

			code := n.Run(context.Background())
			os.Exit(code)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "file", "f", "", "path to the node's ini configuration file")
	_ = cmd.MarkFlagRequired("file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
