package llm

import (
	"fmt"
	"strings"

	"github.com/yfzhou/taxon/internal/taxonomy"
)

// promptPreamble instructs the model to pick exactly one (main, sub) pair
// from the rule list and answer with bare JSON.
const promptPreamble = `你是一个专业的物料分类员，请根据提供的物料信息将其分类到正确的类别。

物料信息包含：型号、品牌、供应商、物料名称、材料等。请按照以下优先级顺序进行分类：

1. **关键词匹配优先**：首先检查物料名称是否与分类标准中的**关键词**直接匹配
2. **详细信息对比**：如果关键词匹配失败，仔细对比物料名称、型号、品牌等信息与**释义**中的详细描述

分类规则：
1. 请严格按照以下分类标准进行分类，不得自定义分类
2. 输出格式必须为严格的JSON格式，仅包含main_category和sub_category两个字段
3. 必须从分类标准中选择完全匹配的大类和二级类
4. 输出的JSON字符串中不得包含任何其他解释或注释
5. 仅使用以下分类标准中的分类：

`

// promptExamples shows the model the exact answer shape expected.
const promptExamples = `
示例：
输入：型号=S7-300, 物料名称=PLC模块
输出：{"main_category": "PLC/IO模块/柜体", "sub_category": "PLC"}

输入：型号=UPS2000, 物料名称=UPS电源
输出：{"main_category": "HMI/工控机/UPS", "sub_category": "UPS电源"}
`

// BuildSystemPrompt renders the full instruction prompt: preamble, every
// taxonomy rule, and the worked examples. Note the rendered rules block is
// itself a valid taxonomy source for ParseRules.
func BuildSystemPrompt(store *taxonomy.Store) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	for _, line := range store.RuleLines() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(promptExamples)
	return b.String()
}

// BuildUserPrompt wraps a record description into the per-call request.
func BuildUserPrompt(description string) string {
	return fmt.Sprintf("现在请对以下物料进行分类：\n物料信息：%s\n分类结果：", description)
}
