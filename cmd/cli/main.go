package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"retail-agent/pkg/config"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	switch cmd {
	case "version":
		fmt.Println("retail-agent cli " + version)
	case "health":
		return printResult(health())
	case "config":
		return runConfig()
	case "login":
		if len(args) < 2 {
			return fmt.Errorf("Usage: retail-agent login <username> <password>")
		}
		token, err := login(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("export RETAIL_AGENT_TOKEN=%s\n", token)
	case "ask":
		if len(args) < 1 {
			return fmt.Errorf("Usage: retail-agent ask <task>")
		}
		return runAsk(strings.Join(args, " "))
	case "chat":
		return runChat()
	case "sweep":
		return printResult(runSweep())
	case "history":
		limit := 20
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid limit %q", args[0])
			}
			limit = n
		}
		return printResult(listHistory(limit))
	case "tools":
		return printResult(listTools())
	case "call":
		if len(args) < 1 {
			return fmt.Errorf("Usage: retail-agent call <tool> [json_args]")
		}
		callArgs := map[string]interface{}{}
		if len(args) > 1 {
			if err := json.Unmarshal([]byte(args[1]), &callArgs); err != nil {
				return fmt.Errorf("invalid json args: %w", err)
			}
		}
		return printResult(callTool(args[0], callArgs))
	case "stock":
		sku := ""
		if len(args) > 0 {
			sku = args[0]
		}
		return printResult(getStock(sku))
	case "orders":
		status := ""
		if len(args) > 0 {
			status = args[0]
		}
		return printResult(listOrders(status))
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: retail-agent <command> [args]")
	fmt.Println("  version               - 显示版本")
	fmt.Println("  health                - 健康检查")
	fmt.Println("  config                - 显示配置概要")
	fmt.Println("  login <user> <pw>     - 登录并输出 RETAIL_AGENT_TOKEN")
	fmt.Println("  ask <task>            - 提交一次 Agent 任务")
	fmt.Println("  chat                  - 交互式多轮对话")
	fmt.Println("  sweep                 - 执行一次自动补货巡检")
	fmt.Println("  history [limit]       - 最近的 Agent 历史记录")
	fmt.Println("  tools                 - 列出可用工具")
	fmt.Println("  call <tool> [json]    - 直接调用工具")
	fmt.Println("  stock [sku]           - 查询库存（含在途）")
	fmt.Println("  orders [status]       - 查询补货订单")
}

func printResult(v map[string]interface{}, err error) error {
	if err != nil {
		return err
	}
	fmt.Println(prettyJSON(v))
	return nil
}

func runConfig() error {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	fmt.Printf("api.port=%d\n", cfg.API.Port)
	fmt.Printf("api.host=%s\n", cfg.API.Host)
	fmt.Printf("model.defaults.llm=%s\n", cfg.Model.Defaults.LLM)
	fmt.Printf("agent.tools.transport=%s\n", cfg.Agent.Tools.Transport)
	fmt.Printf("inventory.type=%s\n", cfg.Inventory.Type)
	fmt.Printf("history.sinks=%s\n", strings.Join(cfg.History.Sinks, ","))
	return nil
}

func runAsk(task string) error {
	out, err := askAgent(task, "")
	if err != nil {
		return err
	}
	fmt.Println(formatAnswer(out))
	return nil
}

// formatAnswer 回答正文加一行状态摘要
func formatAnswer(out map[string]interface{}) string {
	answer, _ := out["answer"].(string)
	status, _ := out["status"].(string)
	iterations, _ := out["iterations"].(float64)
	steps, _ := out["steps"].([]interface{})
	tools := 0
	for _, s := range steps {
		if m, ok := s.(map[string]interface{}); ok && m["kind"] == "tool" {
			tools++
		}
	}
	return fmt.Sprintf("%s\n\n[%s, %d iterations, %d tool calls]", strings.TrimSpace(answer), status, int(iterations), tools)
}

func runChat() error {
	convID, err := newConversation()
	if err != nil {
		return err
	}
	fmt.Printf("conversation: %s（输入 exit 退出）\n", convID)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		msg := strings.TrimSpace(line)
		if msg == "" {
			continue
		}
		if msg == "exit" || msg == "quit" {
			return nil
		}
		out, err := askAgent(msg, convID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "发送失败: %v\n", err)
			continue
		}
		fmt.Println(formatAnswer(out))
	}
}
