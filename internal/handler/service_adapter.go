package handler

import (
	"github.com/dskst/voxntry-sub001/internal/auth"
	"github.com/dskst/voxntry-sub001/internal/checkin"
	"github.com/dskst/voxntry-sub001/internal/conference"
	"github.com/dskst/voxntry-sub001/internal/directory"
	"github.com/dskst/voxntry-sub001/internal/metrics"
	"github.com/dskst/voxntry-sub001/internal/middleware"
)

// --- compile-time interface checks ---
// サービス実装がハンドラーの要求するインターフェースを満たすことを確認する。

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ middleware.IdentityResolver = (*auth.Service)(nil)
var _ DirectoryServiceInterface = (*directory.Service)(nil)
var _ ConferenceGetter = (*conference.Service)(nil)
var _ CheckinServiceInterface = (*checkin.Service)(nil)
var _ LoginMetrics = (*metrics.Collector)(nil)
var _ SearchMetrics = (*metrics.Collector)(nil)
