package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/tabsplit/pkg/api"
)

const (
	SplitServiceName = "tabsplit.v1.SplitService"

	SplitServiceCalculateSplitProcedure  = "/tabsplit.v1.SplitService/CalculateSplit"
	SplitServiceCreateBillProcedure      = "/tabsplit.v1.SplitService/CreateBill"
	SplitServiceGetBillProcedure         = "/tabsplit.v1.SplitService/GetBill"
	SplitServiceUpdateBillProcedure      = "/tabsplit.v1.SplitService/UpdateBill"
	SplitServiceDeleteBillProcedure      = "/tabsplit.v1.SplitService/DeleteBill"
	SplitServiceListBillsProcedure       = "/tabsplit.v1.SplitService/ListBills"
	SplitServiceMarkSplitPaidProcedure   = "/tabsplit.v1.SplitService/MarkSplitPaid"
	SplitServiceUnmarkSplitPaidProcedure = "/tabsplit.v1.SplitService/UnmarkSplitPaid"
	SplitServiceListSplitEventsProcedure = "/tabsplit.v1.SplitService/ListSplitEvents"
)

// SplitServiceHandler is implemented by the split service.
type SplitServiceHandler interface {
	CalculateSplit(context.Context, *connect.Request[api.CalculateSplitRequest]) (*connect.Response[api.CalculateSplitResponse], error)
	CreateBill(context.Context, *connect.Request[api.CreateBillRequest]) (*connect.Response[api.BillResponse], error)
	GetBill(context.Context, *connect.Request[api.GetBillRequest]) (*connect.Response[api.BillResponse], error)
	UpdateBill(context.Context, *connect.Request[api.UpdateBillRequest]) (*connect.Response[api.BillResponse], error)
	DeleteBill(context.Context, *connect.Request[api.DeleteBillRequest]) (*connect.Response[emptypb.Empty], error)
	ListBills(context.Context, *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error)
	MarkSplitPaid(context.Context, *connect.Request[api.MarkSplitPaidRequest]) (*connect.Response[api.BillResponse], error)
	UnmarkSplitPaid(context.Context, *connect.Request[api.UnmarkSplitPaidRequest]) (*connect.Response[api.BillResponse], error)
	ListSplitEvents(context.Context, *connect.Request[api.ListSplitEventsRequest]) (*connect.Response[api.ListSplitEventsResponse], error)
}

// NewSplitServiceHandler returns the mount path and handler for the split service.
func NewSplitServiceHandler(svc SplitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + SplitServiceName + "/", routes{
		SplitServiceCalculateSplitProcedure:  connect.NewUnaryHandler(SplitServiceCalculateSplitProcedure, svc.CalculateSplit, opts...),
		SplitServiceCreateBillProcedure:      connect.NewUnaryHandler(SplitServiceCreateBillProcedure, svc.CreateBill, opts...),
		SplitServiceGetBillProcedure:         connect.NewUnaryHandler(SplitServiceGetBillProcedure, svc.GetBill, opts...),
		SplitServiceUpdateBillProcedure:      connect.NewUnaryHandler(SplitServiceUpdateBillProcedure, svc.UpdateBill, opts...),
		SplitServiceDeleteBillProcedure:      connect.NewUnaryHandler(SplitServiceDeleteBillProcedure, svc.DeleteBill, opts...),
		SplitServiceListBillsProcedure:       connect.NewUnaryHandler(SplitServiceListBillsProcedure, svc.ListBills, opts...),
		SplitServiceMarkSplitPaidProcedure:   connect.NewUnaryHandler(SplitServiceMarkSplitPaidProcedure, svc.MarkSplitPaid, opts...),
		SplitServiceUnmarkSplitPaidProcedure: connect.NewUnaryHandler(SplitServiceUnmarkSplitPaidProcedure, svc.UnmarkSplitPaid, opts...),
		SplitServiceListSplitEventsProcedure: connect.NewUnaryHandler(SplitServiceListSplitEventsProcedure, svc.ListSplitEvents, opts...),
	}
}

// SplitServiceClient is a client for the split service.
type SplitServiceClient struct {
	calculateSplit  *connect.Client[api.CalculateSplitRequest, api.CalculateSplitResponse]
	createBill      *connect.Client[api.CreateBillRequest, api.BillResponse]
	getBill         *connect.Client[api.GetBillRequest, api.BillResponse]
	updateBill      *connect.Client[api.UpdateBillRequest, api.BillResponse]
	deleteBill      *connect.Client[api.DeleteBillRequest, emptypb.Empty]
	listBills       *connect.Client[api.ListBillsRequest, api.ListBillsResponse]
	markSplitPaid   *connect.Client[api.MarkSplitPaidRequest, api.BillResponse]
	unmarkSplitPaid *connect.Client[api.UnmarkSplitPaidRequest, api.BillResponse]
	listSplitEvents *connect.Client[api.ListSplitEventsRequest, api.ListSplitEventsResponse]
}

// NewSplitServiceClient creates a client for the service at baseURL.
func NewSplitServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SplitServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &SplitServiceClient{
		calculateSplit:  connect.NewClient[api.CalculateSplitRequest, api.CalculateSplitResponse](httpClient, baseURL+SplitServiceCalculateSplitProcedure, opts...),
		createBill:      connect.NewClient[api.CreateBillRequest, api.BillResponse](httpClient, baseURL+SplitServiceCreateBillProcedure, opts...),
		getBill:         connect.NewClient[api.GetBillRequest, api.BillResponse](httpClient, baseURL+SplitServiceGetBillProcedure, opts...),
		updateBill:      connect.NewClient[api.UpdateBillRequest, api.BillResponse](httpClient, baseURL+SplitServiceUpdateBillProcedure, opts...),
		deleteBill:      connect.NewClient[api.DeleteBillRequest, emptypb.Empty](httpClient, baseURL+SplitServiceDeleteBillProcedure, opts...),
		listBills:       connect.NewClient[api.ListBillsRequest, api.ListBillsResponse](httpClient, baseURL+SplitServiceListBillsProcedure, opts...),
		markSplitPaid:   connect.NewClient[api.MarkSplitPaidRequest, api.BillResponse](httpClient, baseURL+SplitServiceMarkSplitPaidProcedure, opts...),
		unmarkSplitPaid: connect.NewClient[api.UnmarkSplitPaidRequest, api.BillResponse](httpClient, baseURL+SplitServiceUnmarkSplitPaidProcedure, opts...),
		listSplitEvents: connect.NewClient[api.ListSplitEventsRequest, api.ListSplitEventsResponse](httpClient, baseURL+SplitServiceListSplitEventsProcedure, opts...),
	}
}

func (c *SplitServiceClient) CalculateSplit(ctx context.Context, req *connect.Request[api.CalculateSplitRequest]) (*connect.Response[api.CalculateSplitResponse], error) {
	return c.calculateSplit.CallUnary(ctx, req)
}

func (c *SplitServiceClient) CreateBill(ctx context.Context, req *connect.Request[api.CreateBillRequest]) (*connect.Response[api.BillResponse], error) {
	return c.createBill.CallUnary(ctx, req)
}

func (c *SplitServiceClient) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.BillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *SplitServiceClient) UpdateBill(ctx context.Context, req *connect.Request[api.UpdateBillRequest]) (*connect.Response[api.BillResponse], error) {
	return c.updateBill.CallUnary(ctx, req)
}

func (c *SplitServiceClient) DeleteBill(ctx context.Context, req *connect.Request[api.DeleteBillRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.deleteBill.CallUnary(ctx, req)
}

func (c *SplitServiceClient) ListBills(ctx context.Context, req *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error) {
	return c.listBills.CallUnary(ctx, req)
}

func (c *SplitServiceClient) MarkSplitPaid(ctx context.Context, req *connect.Request[api.MarkSplitPaidRequest]) (*connect.Response[api.BillResponse], error) {
	return c.markSplitPaid.CallUnary(ctx, req)
}

func (c *SplitServiceClient) UnmarkSplitPaid(ctx context.Context, req *connect.Request[api.UnmarkSplitPaidRequest]) (*connect.Response[api.BillResponse], error) {
	return c.unmarkSplitPaid.CallUnary(ctx, req)
}

func (c *SplitServiceClient) ListSplitEvents(ctx context.Context, req *connect.Request[api.ListSplitEventsRequest]) (*connect.Response[api.ListSplitEventsResponse], error) {
	return c.listSplitEvents.CallUnary(ctx, req)
}
