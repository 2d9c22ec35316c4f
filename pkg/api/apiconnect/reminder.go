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
	ReminderServiceName = "tabsplit.v1.ReminderService"

	ReminderServiceScheduleReminderProcedure = "/tabsplit.v1.ReminderService/ScheduleReminder"
	ReminderServiceCancelReminderProcedure   = "/tabsplit.v1.ReminderService/CancelReminder"
	ReminderServiceListRemindersProcedure    = "/tabsplit.v1.ReminderService/ListReminders"
)

// ReminderServiceHandler is implemented by the reminder service.
type ReminderServiceHandler interface {
	ScheduleReminder(context.Context, *connect.Request[api.ScheduleReminderRequest]) (*connect.Response[api.ReminderResponse], error)
	CancelReminder(context.Context, *connect.Request[api.CancelReminderRequest]) (*connect.Response[emptypb.Empty], error)
	ListReminders(context.Context, *connect.Request[api.ListRemindersRequest]) (*connect.Response[api.ListRemindersResponse], error)
}

// NewReminderServiceHandler returns the mount path and handler for the reminder service.
func NewReminderServiceHandler(svc ReminderServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + ReminderServiceName + "/", routes{
		ReminderServiceScheduleReminderProcedure: connect.NewUnaryHandler(ReminderServiceScheduleReminderProcedure, svc.ScheduleReminder, opts...),
		ReminderServiceCancelReminderProcedure:   connect.NewUnaryHandler(ReminderServiceCancelReminderProcedure, svc.CancelReminder, opts...),
		ReminderServiceListRemindersProcedure:    connect.NewUnaryHandler(ReminderServiceListRemindersProcedure, svc.ListReminders, opts...),
	}
}

// ReminderServiceClient is a client for the reminder service.
type ReminderServiceClient struct {
	scheduleReminder *connect.Client[api.ScheduleReminderRequest, api.ReminderResponse]
	cancelReminder   *connect.Client[api.CancelReminderRequest, emptypb.Empty]
	listReminders    *connect.Client[api.ListRemindersRequest, api.ListRemindersResponse]
}

// NewReminderServiceClient creates a client for the service at baseURL.
func NewReminderServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ReminderServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ReminderServiceClient{
		scheduleReminder: connect.NewClient[api.ScheduleReminderRequest, api.ReminderResponse](httpClient, baseURL+ReminderServiceScheduleReminderProcedure, opts...),
		cancelReminder:   connect.NewClient[api.CancelReminderRequest, emptypb.Empty](httpClient, baseURL+ReminderServiceCancelReminderProcedure, opts...),
		listReminders:    connect.NewClient[api.ListRemindersRequest, api.ListRemindersResponse](httpClient, baseURL+ReminderServiceListRemindersProcedure, opts...),
	}
}

func (c *ReminderServiceClient) ScheduleReminder(ctx context.Context, req *connect.Request[api.ScheduleReminderRequest]) (*connect.Response[api.ReminderResponse], error) {
	return c.scheduleReminder.CallUnary(ctx, req)
}

func (c *ReminderServiceClient) CancelReminder(ctx context.Context, req *connect.Request[api.CancelReminderRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.cancelReminder.CallUnary(ctx, req)
}

func (c *ReminderServiceClient) ListReminders(ctx context.Context, req *connect.Request[api.ListRemindersRequest]) (*connect.Response[api.ListRemindersResponse], error) {
	return c.listReminders.CallUnary(ctx, req)
}
