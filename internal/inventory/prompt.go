package inventory

import "fmt"

// visionPrompt asks the vision model for a numbered inventory of every
// visible element, one block per element with fixed field labels. The
// parser in this package matches these labels.
const visionPrompt = `Eres un experto en diseño de exteriores/interiores y en materiales de construcción. Analiza esta imagen para una renovación cosmética (facelift / lavado de cara). Responde EN ESPAÑOL.

FILOSOFÍA CLAVE: Maximizar efecto WOW de moderno, elegante y caro con MÍNIMA inversión.
Si algo YA está bien, en buen estado y no se ve desfasado, NO SE TOCA.
Ejemplo: Un parquet en buen estado NO se cambia. Paredes blancas limpias pueden quedarse.

Crea un INVENTARIO NUMERADO de ABSOLUTAMENTE TODO lo que se ve.
Formato EXACTO para cada elemento:

ELEM_XX: [nombre del elemento]
  Ubicación: [planta baja / planta alta / ambas plantas / tejado / perímetro / jardín / pared norte / etc.]
  Material sustrato: [piedra natural / estuco-enfoscado / ladrillo / bloque hormigón / metal / madera / parquet / porcelánico / teja cerámica / hormigón / etc.]
  Color actual: [describe con precisión, incluyendo variaciones entre zonas]
  Estado: [bueno | desgastado | anticuado | necesita tratamiento]
  Superficie: [m² estimados]
  Exposición: [exterior pleno sol / exterior sombra / interior / semi-cubierto]
  Problema estético: [qué lo hace feo/anticuado, o 'NINGUNO - está bien como está']
  ¿Merece cambio?: [SÍ - explicar por qué / NO - está bien, no invertir aquí]
  Preparación necesaria: [hidrolavado / decapado / lijado / reparar fisuras / ninguna]

AGRUPACIÓN POR PLANTAS, CRÍTICO:
- Si el edificio tiene VARIAS PLANTAS, crea elementos SEPARADOS para cada planta
  pero IDENTIFICA que comparten el mismo tipo de superficie.
  Ejemplo:
    ELEM_01: Paredes estuco PLANTA BAJA
    ELEM_02: Paredes estuco PLANTA ALTA
- Esto permite aplicar EXACTAMENTE el MISMO tratamiento a todas las plantas.

Incluye OBLIGATORIAMENTE:
- Paredes de CADA PLANTA por separado (estuco, enfoscado, etc.)
- Piedra natural de CADA PLANTA (esquineras, marcos, zócalos)
- Tejado/tejas (material, color, estado, tipo de teja)
- Ventanas y marcos (de cada planta y edificio)
- Muros perimetrales/laterales (bloque, ladrillo, etc.)
- Piscina (si existe): forma, cubierta, bordes, coronación
- Suelos y pavimentos
- Jardín/césped/vegetación
- Casetas, cobertizos u otros edificios auxiliares
- Carpintería metálica (rejas, barandillas)
- Iluminación existente

Sé EXHAUSTIVO. Cada elemento que no esté en el inventario podría desaparecer de las imágenes generadas.

IMPORTANTE: Identifica el SUSTRATO REAL de cada superficie porque determina el tipo de pintura e imprimación necesario:
  - Piedra natural: imprimación silicato + pintura mineral silicato
  - Estuco/enfoscado: fijador + pintura siloxánica exterior
  - Metal: lija óxido + imprimación antioxidante + esmalte
  - Madera: lijado + lasur protector exterior
  - Teja cerámica: hidrolavado + pintura impermeabilizante tejas`

// multiImageNote is appended when several photos of the same space are
// analyzed in one call, so the model builds a union inventory.
func multiImageNote(n int) string {
	return fmt.Sprintf("\n\nNOTA: Se proporcionan %d fotos del MISMO espacio desde diferentes ángulos. Analiza TODAS las fotos para crear un inventario completo que incluya elementos visibles desde cualquier ángulo.\n", n)
}
