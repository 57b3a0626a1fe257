package enrich

import (
	"fmt"
	"strings"
)

const (
	LocaleZH = "zh"
	LocaleEN = "en"

	fallbackHeadRunes = 128
)

var systemPrompts = map[string]string{
	LocaleZH: "你是一个教学助理，请用简洁的方式补充背景、公式与示例。",
	LocaleEN: "You are a teaching assistant. Concisely add background, formulas and examples.",
}

// SystemPrompt is the assistant persona sent with every completion.
func SystemPrompt(locale string) string {
	if p, ok := systemPrompts[locale]; ok {
		return p
	}
	return systemPrompts[LocaleZH]
}

// BuildExpandPrompt asks for a summary, deepening points and reading
// suggestions for one topic.
func BuildExpandPrompt(locale, text string, snippets []string) string {
	var sb strings.Builder
	if locale == LocaleEN {
		sb.WriteString("Below is the content of a slide topic. Add background, derivations or code examples, and point out reference links worth adding. ")
		sb.WriteString("Structure the output as: 1) Summary; 2) Key points for deeper understanding; 3) Recommended reading.")
		sb.WriteString("\n\nSlide content:\n")
		sb.WriteString(text)
		sb.WriteString("\n\nRetrieved snippets:\n")
	} else {
		sb.WriteString("下面是PPT页内容，请补充背景、推导或代码示例，并指出应补充的参考链接。")
		sb.WriteString("要求结构化输出：1)概要；2)加深理解的要点列表；3)推荐阅读。")
		sb.WriteString("\n\nPPT内容：\n")
		sb.WriteString(text)
		sb.WriteString("\n\n检索片段：\n")
	}
	sb.WriteString(strings.Join(snippets, "\n"))
	return sb.String()
}

// BuildGlobalPrompt asks for deck-level review notes. The pipeline does not
// produce global notes, so nothing calls this yet.
func BuildGlobalPrompt(locale, outline, topics string) string {
	if locale == LocaleEN {
		return "From the slide outline and topic text below, write overall review notes:\n" +
			"1) Summary of the course or talk (3-5 sentences);\n" +
			"2) Core knowledge points, each with formulas, principles or code where possible;\n" +
			"3) Related and further reading suggestions.\n" +
			"Use clearly sectioned Markdown.\n\n" +
			"Outline:\n" + outline + "\n\nTopic excerpts:\n" + topics
	}
	return "根据以下 PPT 大纲与主题文本，生成一份整体复习笔记：\n" +
		"1) 课程/汇报概要（3-5 句）；\n" +
		"2) 核心知识点列表，每条尽量带公式/原理/代码要点；\n" +
		"3) 关联/延伸参考建议。\n" +
		"输出用清晰分段的 Markdown。\n\n" +
		"大纲：\n" + outline + "\n\n主题摘录：\n" + topics
}

// Fallback is the deterministic reply used when no completion is available.
func Fallback(locale, prompt string) string {
	head := []rune(prompt)
	if len(head) > fallbackHeadRunes {
		head = head[:fallbackHeadRunes]
	}
	h := strings.ReplaceAll(string(head), "\n", " ")
	if locale == LocaleEN {
		return fmt.Sprintf("[offline mode] LLM unavailable. Check OPENAI_API_KEY. Prompt head: %s", h)
	}
	return fmt.Sprintf("[离线模式] 无法访问LLM。请检查OPENAI_API_KEY。提示摘要: %s", h)
}
