package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Common errors (service 00).
var (
	// ErrInternal is the opaque catch-all for unanticipated failures.
	// Its message is intentionally generic; the real cause is logged
	// server-side and never leaks to the caller.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), http.StatusInternalServerError, codes.Internal, "An internal error occurred", "内部错误"))
)

// Study service error codes (service 21).
//
// 错误码格式: AABBCCC
// - AA: 21 (study 服务)
// - BB: 类别代码
// - CCC: 序号
var (
	// 请求参数错误 (类别 01)
	ErrStudyInvalidRequest = Register(New(MakeCode(ServiceStudy, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Invalid request parameters", "请求参数无效"))
	ErrStudyInvalidURL     = Register(New(MakeCode(ServiceStudy, CategoryRequest, 2), http.StatusBadRequest, codes.InvalidArgument, "Invalid document URL", "文档 URL 无效"))

	// 资源错误 (类别 04)
	ErrStudyDocumentNotFound = Register(New(MakeCode(ServiceStudy, CategoryResource, 1), http.StatusNotFound, codes.NotFound, "Vector index not found for document", "未找到文档向量索引"))

	// 生成相关错误 (类别 07)
	ErrStudyQuizFormat     = Register(New(MakeCode(ServiceStudy, CategoryInternal, 1), http.StatusInternalServerError, codes.Internal, "Model output is in an unknown format and could not be corrected", "模型输出格式无法识别"))
	ErrStudyQuizGeneration = Register(New(MakeCode(ServiceStudy, CategoryInternal, 2), http.StatusInternalServerError, codes.Internal, "Failed to generate a valid quiz", "生成有效测验失败"))
	ErrStudyIngestFailed   = Register(New(MakeCode(ServiceStudy, CategoryInternal, 3), http.StatusInternalServerError, codes.Internal, "Document ingestion failed", "文档摄取失败"))

	// 上游服务错误 (类别 10)
	ErrStudyUpstream = Register(New(MakeCode(ServiceStudy, CategoryNetwork, 1), http.StatusBadGateway, codes.Unavailable, "Upstream model service failed", "上游模型服务调用失败"))
)
