// Package textmatch 实现检索质量验证的文本比对核心：
// 预期段落解析、词面相似度评分、RAG 命中指标聚合与文件引用精确匹配.
//
// 相似度只做词面匹配（字符级最长公共子串），不做语义/向量相似度.
package textmatch
