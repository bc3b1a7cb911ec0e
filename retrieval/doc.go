// Package retrieval 提供编排器检索协作方的内存实现：文档按
// 行业归档，检索时以查询词面重叠度打分排序。另附按地区预置
// 合规知识文档的辅助函数。
package retrieval
