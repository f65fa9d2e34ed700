// Package store 提供按文档划分的向量索引存储层。
//
// 每个文档对应一个索引文件，发布后不可变；
// 多文档查询时在内存中合并，合并结果只存在于单次请求内。
package store
