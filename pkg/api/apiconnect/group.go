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
	GroupServiceName = "tabsplit.v1.GroupService"

	GroupServiceCreateGroupProcedure      = "/tabsplit.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure         = "/tabsplit.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure       = "/tabsplit.v1.GroupService/ListGroups"
	GroupServiceUpdateGroupProcedure      = "/tabsplit.v1.GroupService/UpdateGroup"
	GroupServiceDeleteGroupProcedure      = "/tabsplit.v1.GroupService/DeleteGroup"
	GroupServiceAddMembersProcedure       = "/tabsplit.v1.GroupService/AddMembers"
	GroupServiceArchiveMemberProcedure    = "/tabsplit.v1.GroupService/ArchiveMember"
	GroupServiceDeleteMemberProcedure     = "/tabsplit.v1.GroupService/DeleteMember"
	GroupServiceGetGroupBalancesProcedure = "/tabsplit.v1.GroupService/GetGroupBalances"
	GroupServiceGetGroupSpendingProcedure = "/tabsplit.v1.GroupService/GetGroupSpending"
	GroupServiceRecordSettlementProcedure = "/tabsplit.v1.GroupService/RecordSettlement"
	GroupServiceListSettlementsProcedure  = "/tabsplit.v1.GroupService/ListSettlements"
	GroupServiceDeleteSettlementProcedure = "/tabsplit.v1.GroupService/DeleteSettlement"
)

// GroupServiceHandler is implemented by the group service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.GroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error)
	UpdateGroup(context.Context, *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.GroupResponse], error)
	DeleteGroup(context.Context, *connect.Request[api.DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error)
	AddMembers(context.Context, *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error)
	ArchiveMember(context.Context, *connect.Request[api.ArchiveMemberRequest]) (*connect.Response[api.GroupResponse], error)
	DeleteMember(context.Context, *connect.Request[api.DeleteMemberRequest]) (*connect.Response[emptypb.Empty], error)
	GetGroupBalances(context.Context, *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error)
	GetGroupSpending(context.Context, *connect.Request[api.GetGroupSpendingRequest]) (*connect.Response[api.GetGroupSpendingResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.SettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error)
	DeleteSettlement(context.Context, *connect.Request[api.DeleteSettlementRequest]) (*connect.Response[emptypb.Empty], error)
}

// NewGroupServiceHandler returns the mount path and handler for the group service.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + GroupServiceName + "/", routes{
		GroupServiceCreateGroupProcedure:      connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...),
		GroupServiceGetGroupProcedure:         connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...),
		GroupServiceListGroupsProcedure:       connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...),
		GroupServiceUpdateGroupProcedure:      connect.NewUnaryHandler(GroupServiceUpdateGroupProcedure, svc.UpdateGroup, opts...),
		GroupServiceDeleteGroupProcedure:      connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts...),
		GroupServiceAddMembersProcedure:       connect.NewUnaryHandler(GroupServiceAddMembersProcedure, svc.AddMembers, opts...),
		GroupServiceArchiveMemberProcedure:    connect.NewUnaryHandler(GroupServiceArchiveMemberProcedure, svc.ArchiveMember, opts...),
		GroupServiceDeleteMemberProcedure:     connect.NewUnaryHandler(GroupServiceDeleteMemberProcedure, svc.DeleteMember, opts...),
		GroupServiceGetGroupBalancesProcedure: connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...),
		GroupServiceGetGroupSpendingProcedure: connect.NewUnaryHandler(GroupServiceGetGroupSpendingProcedure, svc.GetGroupSpending, opts...),
		GroupServiceRecordSettlementProcedure: connect.NewUnaryHandler(GroupServiceRecordSettlementProcedure, svc.RecordSettlement, opts...),
		GroupServiceListSettlementsProcedure:  connect.NewUnaryHandler(GroupServiceListSettlementsProcedure, svc.ListSettlements, opts...),
		GroupServiceDeleteSettlementProcedure: connect.NewUnaryHandler(GroupServiceDeleteSettlementProcedure, svc.DeleteSettlement, opts...),
	}
}

// GroupServiceClient is a client for the group service.
type GroupServiceClient struct {
	createGroup      *connect.Client[api.CreateGroupRequest, api.GroupResponse]
	getGroup         *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	listGroups       *connect.Client[api.ListGroupsRequest, api.ListGroupsResponse]
	updateGroup      *connect.Client[api.UpdateGroupRequest, api.GroupResponse]
	deleteGroup      *connect.Client[api.DeleteGroupRequest, emptypb.Empty]
	addMembers       *connect.Client[api.AddMembersRequest, api.AddMembersResponse]
	archiveMember    *connect.Client[api.ArchiveMemberRequest, api.GroupResponse]
	deleteMember     *connect.Client[api.DeleteMemberRequest, emptypb.Empty]
	getGroupBalances *connect.Client[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse]
	getGroupSpending *connect.Client[api.GetGroupSpendingRequest, api.GetGroupSpendingResponse]
	recordSettlement *connect.Client[api.RecordSettlementRequest, api.SettlementResponse]
	listSettlements  *connect.Client[api.ListSettlementsRequest, api.ListSettlementsResponse]
	deleteSettlement *connect.Client[api.DeleteSettlementRequest, emptypb.Empty]
}

// NewGroupServiceClient creates a client for the service at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &GroupServiceClient{
		createGroup:      connect.NewClient[api.CreateGroupRequest, api.GroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:         connect.NewClient[api.GetGroupRequest, api.GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:       connect.NewClient[api.ListGroupsRequest, api.ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		updateGroup:      connect.NewClient[api.UpdateGroupRequest, api.GroupResponse](httpClient, baseURL+GroupServiceUpdateGroupProcedure, opts...),
		deleteGroup:      connect.NewClient[api.DeleteGroupRequest, emptypb.Empty](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
		addMembers:       connect.NewClient[api.AddMembersRequest, api.AddMembersResponse](httpClient, baseURL+GroupServiceAddMembersProcedure, opts...),
		archiveMember:    connect.NewClient[api.ArchiveMemberRequest, api.GroupResponse](httpClient, baseURL+GroupServiceArchiveMemberProcedure, opts...),
		deleteMember:     connect.NewClient[api.DeleteMemberRequest, emptypb.Empty](httpClient, baseURL+GroupServiceDeleteMemberProcedure, opts...),
		getGroupBalances: connect.NewClient[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse](httpClient, baseURL+GroupServiceGetGroupBalancesProcedure, opts...),
		getGroupSpending: connect.NewClient[api.GetGroupSpendingRequest, api.GetGroupSpendingResponse](httpClient, baseURL+GroupServiceGetGroupSpendingProcedure, opts...),
		recordSettlement: connect.NewClient[api.RecordSettlementRequest, api.SettlementResponse](httpClient, baseURL+GroupServiceRecordSettlementProcedure, opts...),
		listSettlements:  connect.NewClient[api.ListSettlementsRequest, api.ListSettlementsResponse](httpClient, baseURL+GroupServiceListSettlementsProcedure, opts...),
		deleteSettlement: connect.NewClient[api.DeleteSettlementRequest, emptypb.Empty](httpClient, baseURL+GroupServiceDeleteSettlementProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	return c.updateGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ArchiveMember(ctx context.Context, req *connect.Request[api.ArchiveMemberRequest]) (*connect.Response[api.GroupResponse], error) {
	return c.archiveMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteMember(ctx context.Context, req *connect.Request[api.DeleteMemberRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.deleteMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupSpending(ctx context.Context, req *connect.Request[api.GetGroupSpendingRequest]) (*connect.Response[api.GetGroupSpendingResponse], error) {
	return c.getGroupSpending.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.SettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteSettlement(ctx context.Context, req *connect.Request[api.DeleteSettlementRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.deleteSettlement.CallUnary(ctx, req)
}
