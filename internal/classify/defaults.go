package classify

import "finora/internal/models"

// DefaultCategories is the built-in catalogue.
func DefaultCategories() []Category {
	in, out := models.RecordKindIncome, models.RecordKindExpense
	return []Category{
		{ID: "salario", Name: "Salário", Direction: in, Keywords: []string{"salário", "salario", "holerite", "pagamento mensal", "décimo terceiro", "férias"}},
		{ID: "freelance", Name: "Freelance", Direction: in, Keywords: []string{"freela", "projeto", "consultoria", "job"}},
		{ID: "servicos", Name: "Serviços", Direction: in, Keywords: []string{"serviço", "servico", "manutenção", "instalação", "conserto"}},
		{ID: "vendas", Name: "Vendas", Direction: in, Keywords: []string{"venda", "produto", "loja", "pedido"}},
		{ID: "investimentos", Name: "Investimentos", Direction: in, Keywords: []string{"dividendo", "rendimento", "juros", "cdb", "tesouro", "aluguel recebido"}},
		{ID: "outras-receitas", Name: "Outras receitas", Direction: in},

		{ID: "alimentacao", Name: "Alimentação", Direction: out, Keywords: []string{"mercado", "supermercado", "restaurante", "ifood", "padaria", "lanche", "almoço", "jantar", "pizza"}},
		{ID: "transporte", Name: "Transporte", Direction: out, Keywords: []string{"uber", "taxi", "táxi", "ônibus", "onibus", "metrô", "metro", "gasolina", "combustível", "estacionamento", "pedágio"}},
		{ID: "moradia", Name: "Moradia", Direction: out, Keywords: []string{"aluguel", "condomínio", "condominio", "energia", "luz", "água", "internet", "iptu"}},
		{ID: "saude", Name: "Saúde", Direction: out, Keywords: []string{"farmácia", "farmacia", "médico", "medico", "consulta", "exame", "plano de saúde", "dentista"}},
		{ID: "educacao", Name: "Educação", Direction: out, Keywords: []string{"curso", "escola", "faculdade", "livro", "mensalidade"}},
		{ID: "lazer", Name: "Lazer", Direction: out, Keywords: []string{"cinema", "netflix", "spotify", "viagem", "hotel", "show"}},
		{ID: "impostos", Name: "Impostos", Direction: out, Keywords: []string{"imposto", "inss", "irpf", "taxa"}},
		{ID: "outras-despesas", Name: "Outras despesas", Direction: out},
	}
}
