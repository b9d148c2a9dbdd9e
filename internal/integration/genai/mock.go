package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/entity"
)

// MockConnector is a deterministic stand-in for the generation service,
// enabled via ENABLE_MOCKS for local runs and integration tests.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Classify(ctx context.Context, req *entity.GenAIClassifyRequest) (
	*entity.GenAIClassifyResponse, error,
) {
	ctxzap.Info(ctx, "[MOCK] classifying project")

	return &entity.GenAIClassifyResponse{
		Type:              "web_application",
		Complexity:        "moderate",
		Domain:            "general",
		Confidence:        0.9,
		KeyTechnologies:   []string{"React", "Node.js", "PostgreSQL"},
		EstimatedDuration: "3-6 meses",
	}, nil
}

var mockInitialQuestions = []entity.GenAIQuestion{
	{
		Text:         "Qual é o principal objetivo de negócio deste projeto?",
		WhyItMatters: "Define a visão geral e o valor esperado do sistema",
		Choices: []entity.GenAIQuestionChoice{
			{ID: "revenue", Text: "Gerar receita"},
			{ID: "efficiency", Text: "Aumentar eficiência operacional"},
			{ID: "reach", Text: "Ampliar alcance de clientes"},
		},
		Required: true,
		Category: "business",
	},
	{
		Text:         "Quem são os principais usuários do sistema?",
		WhyItMatters: "Orienta decisões de interface e prioridades",
		Choices: []entity.GenAIQuestionChoice{
			{ID: "internal", Text: "Equipe interna"},
			{ID: "customers", Text: "Clientes finais"},
			{ID: "partners", Text: "Parceiros de negócio"},
		},
		Required:      true,
		AllowMultiple: true,
		Category:      "business",
	},
	{
		Text:         "Existe preferência de plataforma para o sistema?",
		WhyItMatters: "Determina a arquitetura de entrega",
		Choices: []entity.GenAIQuestionChoice{
			{ID: "web", Text: "Aplicação web"},
			{ID: "mobile", Text: "Aplicativo móvel"},
			{ID: "both", Text: "Web e móvel"},
		},
		Required: true,
		Category: "technical",
	},
	{
		Text:         "Quais integrações com sistemas externos são necessárias?",
		WhyItMatters: "Identifica dependências técnicas cedo",
		Choices: []entity.GenAIQuestionChoice{
			{ID: "payments", Text: "Pagamentos"},
			{ID: "crm", Text: "CRM"},
			{ID: "none", Text: "Nenhuma"},
		},
		Required:      true,
		AllowMultiple: true,
		Category:      "technical",
	},
	{
		Text:         "Qual é a expectativa de volume de usuários simultâneos?",
		WhyItMatters: "Dimensiona infraestrutura e custos de operação",
		Choices: []entity.GenAIQuestionChoice{
			{ID: "small", Text: "Até 100"},
			{ID: "medium", Text: "Entre 100 e 10 mil"},
			{ID: "large", Text: "Acima de 10 mil"},
		},
		Required: true,
		Category: "operational",
	},
}

var mockFollowUpQuestions = []entity.GenAIQuestion{
	{
		Text:         "Há requisitos de conformidade ou regulamentação (LGPD, PCI)?",
		WhyItMatters: "Impacta arquitetura de dados e auditoria",
		Choices: []entity.GenAIQuestionChoice{
			{ID: "lgpd", Text: "LGPD"},
			{ID: "pci", Text: "PCI-DSS"},
			{ID: "none", Text: "Nenhum"},
		},
		Required:      true,
		AllowMultiple: true,
		Category:      "operational",
	},
	{
		Text:         "Qual é o prazo desejado para a primeira entrega?",
		WhyItMatters: "Define o escopo viável do MVP",
		Choices: []entity.GenAIQuestionChoice{
			{ID: "1m", Text: "1 mês"},
			{ID: "3m", Text: "3 meses"},
			{ID: "6m", Text: "6 meses ou mais"},
		},
		Required: true,
		Category: "business",
	},
}

func (m *MockConnector) GenerateQuestionBatch(ctx context.Context, req *entity.GenAIQuestionBatchRequest) (
	*entity.GenAIQuestionBatchResponse, error,
) {
	ctxzap.Info(ctx, "[MOCK] generating question batch",
		zap.Int("answered_count", len(req.AnsweredQuestions)))

	questions := mockInitialQuestions
	if len(req.AnsweredQuestions) > 0 {
		questions = mockFollowUpQuestions
	}
	if req.BatchSize > 0 && req.BatchSize < len(questions) {
		questions = questions[:req.BatchSize]
	}

	return &entity.GenAIQuestionBatchResponse{Questions: questions}, nil
}

func (m *MockConnector) GenerateRefinementQuestions(ctx context.Context, req *entity.GenAIRefinementRequest) (
	*entity.GenAIRefinementResponse, error,
) {
	ctxzap.Info(ctx, "[MOCK] generating refinement questions")

	questions := []entity.GenAIQuestion{
		{
			Text:         "O que no resumo não refletiu corretamente sua expectativa?",
			WhyItMatters: "Direciona a correção do resumo",
			Choices: []entity.GenAIQuestionChoice{
				{ID: "scope", Text: "Escopo do projeto"},
				{ID: "priorities", Text: "Prioridades"},
				{ID: "tech", Text: "Escolhas técnicas"},
			},
			Required: true,
			Category: "refinement",
		},
		{
			Text:         "Há alguma funcionalidade essencial que ficou de fora?",
			WhyItMatters: "Garante cobertura completa do escopo",
			Choices: []entity.GenAIQuestionChoice{
				{ID: "yes", Text: "Sim"},
				{ID: "no", Text: "Não"},
			},
			Required: true,
			Category: "refinement",
		},
	}
	if req.MaxQuestions > 0 && req.MaxQuestions < len(questions) {
		questions = questions[:req.MaxQuestions]
	}

	return &entity.GenAIRefinementResponse{Questions: questions}, nil
}

func (m *MockConnector) GenerateSummary(ctx context.Context, req *entity.GenAISummaryRequest) (
	*entity.GenAISummaryResponse, error,
) {
	ctxzap.Info(ctx, "[MOCK] generating summary",
		zap.Int("answered_count", len(req.AnsweredQuestions)))

	text := "O projeto consiste em uma aplicação para atender os objetivos descritos pelo cliente, " +
		"com base nas respostas coletadas durante a triagem."
	if req.RejectionFeedback != "" {
		text += " O resumo foi revisado considerando o seguinte retorno: " + req.RejectionFeedback
	}

	var assumptions []string
	if req.IncludeAssumptions {
		assumptions = []string{
			"A equipe do cliente estará disponível para validações quinzenais",
		}
	}

	language := req.Language
	if language == "" {
		language = "pt-BR"
	}

	return &entity.GenAISummaryResponse{
		Text: text,
		KeyPoints: []string{
			"Aplicação web com foco no objetivo de negócio informado",
			"Integrações externas conforme respostas da triagem",
			"Entrega incremental começando por um MVP",
		},
		Assumptions:     assumptions,
		ConfidenceScore: 0.85,
		Language:        language,
	}, nil
}

func (m *MockConnector) GenerateStackDocument(ctx context.Context, req *entity.GenAIStackDocumentRequest) (
	*entity.GenAIStackDocumentResponse, error,
) {
	ctxzap.Info(ctx, "[MOCK] generating stack document",
		zap.String("stack_type", req.StackType))

	titles := map[string]string{
		"frontend": "Documento Técnico - Frontend",
		"backend":  "Documento Técnico - Backend",
		"database": "Documento Técnico - Banco de Dados",
		"devops":   "Documento Técnico - DevOps",
	}
	technologies := map[string][]string{
		"frontend": {"React", "TypeScript", "Tailwind CSS"},
		"backend":  {"Node.js", "Express", "REST"},
		"database": {"PostgreSQL", "Redis"},
		"devops":   {"Docker", "GitHub Actions", "AWS"},
	}

	title, ok := titles[req.StackType]
	if !ok {
		return nil, fmt.Errorf("unknown stack type %q: %w", req.StackType, entity.ErrGenerationFailed)
	}

	var content strings.Builder
	content.WriteString("# " + title + "\n\n")
	content.WriteString("## Visão Geral\n")
	content.WriteString("Este documento descreve as recomendações técnicas para a camada de " +
		req.StackType + " do projeto, derivadas do resumo confirmado.\n\n")
	content.WriteString("## Recomendações\n")
	for _, tech := range technologies[req.StackType] {
		content.WriteString("- Adotar " + tech + " conforme o porte estimado do projeto\n")
	}
	if req.IncludeDetails {
		content.WriteString("\n## Detalhes de Implementação\n")
		content.WriteString("Estrutura sugerida de módulos, convenções de código e plano de testes " +
			"para a camada de " + req.StackType + ".\n")
	}

	return &entity.GenAIStackDocumentResponse{
		Title:           title,
		Content:         content.String(),
		Technologies:    technologies[req.StackType],
		EstimatedEffort: "4-6 semanas",
	}, nil
}
