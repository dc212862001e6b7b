// Command issuetracker はIssueトラッカーのAPIサーバー、ワーカー、マイグレーションを起動する。
//
// 使い方:
//
//	issuetracker [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/issuetracker/internal/app"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-h", "--help", "help":
			fmt.Println(app.Usage())
			return
		}
	}

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "issuetracker: %v\n", err)
		os.Exit(1)
	}
}
