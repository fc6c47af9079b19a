package config

import (
	"time"

	"github.com/yoke233/metting/internal/domain"
)

const (
	DefaultBaseURL     = "https://api.openai.com"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultTimeout     = 120 * time.Second
	DefaultServerAddr  = "127.0.0.1:8080"
)

func Defaults(home string) Settings {
	settings := Settings{
		Home:   home,
		Runner: RunnerStub,
		OpenAI: OpenAI{
			BaseURL:     DefaultBaseURL,
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			Timeout:     DefaultTimeout,
		},
		Server:  Server{Addr: DefaultServerAddr},
		Log:     Log{Level: "INFO"},
		Prompts: DefaultPrompts(),
	}

	return settings.withDerivedPaths()
}

func DefaultPrompts() domain.Prompts {
	return domain.Prompts{
		System: "你正在参加一场多角色技术评审会议。请围绕议题给出专业、具体、可执行的意见，避免空泛表述。",
		RoleOutput: "请只输出一个 JSON 对象，字段如下：assumptions(字符串数组)、proposal(字符串)、" +
			"tradeoffs(字符串数组)、risks(对象数组，每项包含 risk/impact/mitigation/verification)、" +
			"questions(字符串数组)、decision_recommendation(字符串)。不要输出 JSON 以外的内容。",
		RoleRepair: "上一次输出不符合约定的 JSON 结构。请保持原有观点，只输出修复后的 JSON 对象，不要附加解释。",
		RoundSummary: "请以 JSON 对象总结本轮讨论，字段：round(整数)、summary(字符串)、" +
			"open_questions、decisions、risks、next_steps(均为数组)。",
		RecorderOutput: "会议已结束。请输出一个 JSON 对象，包含 ADR、TASKS、RISKS 三个字段。" +
			"ADR 包含 context/decision/alternatives_considered/consequences/risks_summary/open_questions/next_steps；" +
			"TASKS 包含 tasks 数组，每项有 task_id/title/owner_role/priority/estimate/dependencies；" +
			"RISKS 包含 risks 数组，每项有 risk/impact/probability/mitigation/verification/owner_role。",
		Roles: map[string]string{
			"Chief Architect":    "你是首席架构师，负责整体方案取舍与最终技术决策。",
			"Infra Architect":    "你是基础设施架构师，关注部署、容量、可用性与运维成本。",
			"Security Architect": "你是安全架构师，关注威胁模型、数据保护与合规要求。",
			"Skeptic":            "你是质疑者，专门挑战假设、寻找方案漏洞与遗漏的风险。",
			domain.RecorderRole:  "你是书记员，负责客观记录讨论、总结结论并整理会议产出。",
		},
	}
}
