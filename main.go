// 命令行入口：子命令与配置加载见 internal/cli。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go-weiboapi/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
