package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// ServiceName is the fully-qualified name of the insights service.
const ServiceName = "pfinance.insights.v1.InsightsService"

const (
	AddTransactionsProcedure           = "/" + ServiceName + "/AddTransactions"
	ListTransactionsProcedure          = "/" + ServiceName + "/ListTransactions"
	DeleteTransactionProcedure         = "/" + ServiceName + "/DeleteTransaction"
	PredictExpensesProcedure           = "/" + ServiceName + "/PredictExpenses"
	PredictIncomeProcedure             = "/" + ServiceName + "/PredictIncome"
	IdentifyAnomalousSpendingProcedure = "/" + ServiceName + "/IdentifyAnomalousSpending"
	SuggestSavingsGoalsProcedure       = "/" + ServiceName + "/SuggestSavingsGoals"
	DetectRecurringProcedure           = "/" + ServiceName + "/DetectRecurring"
	CategorizeTransactionProcedure     = "/" + ServiceName + "/CategorizeTransaction"
	GenerateFinancialInsightsProcedure = "/" + ServiceName + "/GenerateFinancialInsights"
)

// NewHandler builds an HTTP handler serving every insights procedure over the
// Connect protocol with JSON bodies. The returned path is the mount prefix.
func NewHandler(svc *InsightsService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(AddTransactionsProcedure, connect.NewUnaryHandler(AddTransactionsProcedure, svc.AddTransactions, opts...))
	mux.Handle(ListTransactionsProcedure, connect.NewUnaryHandler(ListTransactionsProcedure, svc.ListTransactions, opts...))
	mux.Handle(DeleteTransactionProcedure, connect.NewUnaryHandler(DeleteTransactionProcedure, svc.DeleteTransaction, opts...))
	mux.Handle(PredictExpensesProcedure, connect.NewUnaryHandler(PredictExpensesProcedure, svc.PredictExpenses, opts...))
	mux.Handle(PredictIncomeProcedure, connect.NewUnaryHandler(PredictIncomeProcedure, svc.PredictIncome, opts...))
	mux.Handle(IdentifyAnomalousSpendingProcedure, connect.NewUnaryHandler(IdentifyAnomalousSpendingProcedure, svc.IdentifyAnomalousSpending, opts...))
	mux.Handle(SuggestSavingsGoalsProcedure, connect.NewUnaryHandler(SuggestSavingsGoalsProcedure, svc.SuggestSavingsGoals, opts...))
	mux.Handle(DetectRecurringProcedure, connect.NewUnaryHandler(DetectRecurringProcedure, svc.DetectRecurring, opts...))
	mux.Handle(CategorizeTransactionProcedure, connect.NewUnaryHandler(CategorizeTransactionProcedure, svc.CategorizeTransaction, opts...))
	mux.Handle(GenerateFinancialInsightsProcedure, connect.NewUnaryHandler(GenerateFinancialInsightsProcedure, svc.GenerateFinancialInsights, opts...))

	return "/" + ServiceName + "/", mux
}

// InsightsClient calls a remote insights service.
type InsightsClient struct {
	addTransactions           *connect.Client[AddTransactionsRequest, AddTransactionsResponse]
	listTransactions          *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
	deleteTransaction         *connect.Client[DeleteTransactionRequest, DeleteTransactionResponse]
	predictExpenses           *connect.Client[PredictRequest, PredictResponse]
	predictIncome             *connect.Client[PredictRequest, PredictResponse]
	identifyAnomalousSpending *connect.Client[AnomaliesRequest, AnomaliesResponse]
	suggestSavingsGoals       *connect.Client[SavingsGoalsRequest, SavingsGoalsResponse]
	detectRecurring           *connect.Client[RecurringRequest, RecurringResponse]
	categorizeTransaction     *connect.Client[CategorizeRequest, CategorizeResponse]
	generateFinancialInsights *connect.Client[InsightsRequest, InsightsResponse]
}

// NewInsightsClient constructs a client for the service at baseURL, for
// example http://localhost:8111.
func NewInsightsClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *InsightsClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &InsightsClient{
		addTransactions:           connect.NewClient[AddTransactionsRequest, AddTransactionsResponse](httpClient, baseURL+AddTransactionsProcedure, opts...),
		listTransactions:          connect.NewClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL+ListTransactionsProcedure, opts...),
		deleteTransaction:         connect.NewClient[DeleteTransactionRequest, DeleteTransactionResponse](httpClient, baseURL+DeleteTransactionProcedure, opts...),
		predictExpenses:           connect.NewClient[PredictRequest, PredictResponse](httpClient, baseURL+PredictExpensesProcedure, opts...),
		predictIncome:             connect.NewClient[PredictRequest, PredictResponse](httpClient, baseURL+PredictIncomeProcedure, opts...),
		identifyAnomalousSpending: connect.NewClient[AnomaliesRequest, AnomaliesResponse](httpClient, baseURL+IdentifyAnomalousSpendingProcedure, opts...),
		suggestSavingsGoals:       connect.NewClient[SavingsGoalsRequest, SavingsGoalsResponse](httpClient, baseURL+SuggestSavingsGoalsProcedure, opts...),
		detectRecurring:           connect.NewClient[RecurringRequest, RecurringResponse](httpClient, baseURL+DetectRecurringProcedure, opts...),
		categorizeTransaction:     connect.NewClient[CategorizeRequest, CategorizeResponse](httpClient, baseURL+CategorizeTransactionProcedure, opts...),
		generateFinancialInsights: connect.NewClient[InsightsRequest, InsightsResponse](httpClient, baseURL+GenerateFinancialInsightsProcedure, opts...),
	}
}

func (c *InsightsClient) AddTransactions(ctx context.Context, req *connect.Request[AddTransactionsRequest]) (*connect.Response[AddTransactionsResponse], error) {
	return c.addTransactions.CallUnary(ctx, req)
}

func (c *InsightsClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

func (c *InsightsClient) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	return c.deleteTransaction.CallUnary(ctx, req)
}

func (c *InsightsClient) PredictExpenses(ctx context.Context, req *connect.Request[PredictRequest]) (*connect.Response[PredictResponse], error) {
	return c.predictExpenses.CallUnary(ctx, req)
}

func (c *InsightsClient) PredictIncome(ctx context.Context, req *connect.Request[PredictRequest]) (*connect.Response[PredictResponse], error) {
	return c.predictIncome.CallUnary(ctx, req)
}

func (c *InsightsClient) IdentifyAnomalousSpending(ctx context.Context, req *connect.Request[AnomaliesRequest]) (*connect.Response[AnomaliesResponse], error) {
	return c.identifyAnomalousSpending.CallUnary(ctx, req)
}

func (c *InsightsClient) SuggestSavingsGoals(ctx context.Context, req *connect.Request[SavingsGoalsRequest]) (*connect.Response[SavingsGoalsResponse], error) {
	return c.suggestSavingsGoals.CallUnary(ctx, req)
}

func (c *InsightsClient) DetectRecurring(ctx context.Context, req *connect.Request[RecurringRequest]) (*connect.Response[RecurringResponse], error) {
	return c.detectRecurring.CallUnary(ctx, req)
}

func (c *InsightsClient) CategorizeTransaction(ctx context.Context, req *connect.Request[CategorizeRequest]) (*connect.Response[CategorizeResponse], error) {
	return c.categorizeTransaction.CallUnary(ctx, req)
}

func (c *InsightsClient) GenerateFinancialInsights(ctx context.Context, req *connect.Request[InsightsRequest]) (*connect.Response[InsightsResponse], error) {
	return c.generateFinancialInsights.CallUnary(ctx, req)
}
