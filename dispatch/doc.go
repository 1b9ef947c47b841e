// Package dispatch é o motor de ingestão de conexões do gateway.
//
// Um Dispatcher aceita conexões TCP e as distribui em round-robin entre um
// número fixo de Workers. Cada Worker tem uma fila FIFO sem limite, um
// conjunto de slots (10 por padrão) e dispara uma goroutine por conexão, que
// espera admissão no tier global antes de chamar o ConnHandler.
//
// Estados do Worker: running → draining (fila fechada, em voo continua) → stopped.
package dispatch
