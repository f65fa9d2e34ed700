// Package biz 提供 studyrag 服务的业务逻辑层。
//
// 该包将业务逻辑拆分为以下组件：
//   - Sampler: 从合并索引中抽取上下文（检索策略 / 随机策略）
//   - Chat: 流式问答管道
//   - Quiz: 测验生成与评分，含模型输出修复
//   - Topics: 视频搜索主题建议
//   - Ingestor: PDF 下载、解析、分块、嵌入、索引发布
//   - Service: 组合以上组件，提供统一的服务接口
package biz
